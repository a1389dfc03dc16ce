package model

import (
	"encoding/gob"
	"io"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	json "github.com/goccy/go-json"
)

// SaveModel はモデルをgob形式でファイルに保存する
// 既存のファイルは上書きされ、親ディレクトリがなければ作成する
//
// 使用例:
//
//	forest := ensemble.NewRandomForestRegressor()
//	// ... モデルの学習 ...
//	err := model.SaveModel(forest, "food_prediction_model.gob")
func SaveModel(model interface{}, filename string) error {
	return writeFile(filename, func(w io.Writer) error {
		return SaveModelToWriter(model, w)
	})
}

// LoadModel はgob形式のファイルからモデルを読み込む
func LoadModel(model interface{}, filename string) error {
	return readFile(filename, func(r io.Reader) error {
		return LoadModelFromReader(model, r)
	})
}

// SaveModelToWriter はモデルをio.Writerにgob形式で保存する
func SaveModelToWriter(model interface{}, w io.Writer) error {
	if err := gob.NewEncoder(w).Encode(model); err != nil {
		return errors.Wrap(err, "failed to encode model")
	}
	return nil
}

// LoadModelFromReader はio.Readerからgob形式のモデルを読み込む
func LoadModelFromReader(model interface{}, r io.Reader) error {
	if err := gob.NewDecoder(r).Decode(model); err != nil {
		return errors.Wrap(err, "failed to decode model")
	}
	return nil
}

// SaveJSON は人が読める形式のアーティファクト（エンコーダ等）をJSONで保存する
func SaveJSON(v interface{}, filename string) error {
	return writeFile(filename, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return errors.Wrap(err, "failed to encode json artifact")
		}
		return nil
	})
}

// LoadJSON はJSONアーティファクトを読み込む
func LoadJSON(v interface{}, filename string) error {
	return readFile(filename, func(r io.Reader) error {
		if err := json.NewDecoder(r).Decode(v); err != nil {
			return errors.Wrap(err, "failed to decode json artifact")
		}
		return nil
	})
}

func writeFile(filename string, encode func(io.Writer) error) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "failed to create directory %s", dir)
		}
	}

	file, err := os.Create(filename)
	if err != nil {
		return errors.Wrapf(err, "failed to create file %s", filename)
	}
	if err := encode(file); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return errors.Wrapf(err, "failed to close file %s", filename)
	}
	return nil
}

func readFile(filename string, decode func(io.Reader) error) error {
	file, err := os.Open(filename)
	if err != nil {
		return errors.Wrapf(err, "failed to open file %s", filename)
	}
	defer file.Close()

	return decode(file)
}
