package preprocessing

import (
	"sort"

	"github.com/YuminosukeSato/foodcast/core/model"
	"github.com/YuminosukeSato/foodcast/pkg/errors"
)

// LabelEncoder はscikit-learn互換のラベルエンコーダー
// 文字列ラベルを0からn_classes-1の整数コードに変換する
// クラスはソート済みの一意なラベルで、コードはその並びのインデックス
type LabelEncoder struct {
	model.BaseEstimator

	// classes はソート済みの既知ラベル
	classes []string

	// index はラベルからコードへの逆引き
	index map[string]int
}

// labelEncoderArtifact はJSONアーティファクトの形式
type labelEncoderArtifact struct {
	Classes []string `json:"classes"`
}

// NewLabelEncoder は新しいLabelEncoderを作成する
//
// 使用例:
//
//	le := preprocessing.NewLabelEncoder()
//	codes, err := le.FitTransform([]string{"Wedding", "Festival", "Wedding"})
//	// codes == []int{1, 0, 1}
func NewLabelEncoder() *LabelEncoder {
	return &LabelEncoder{}
}

// Fit は観測されたラベルからクラス一覧を作る
func (le *LabelEncoder) Fit(labels []string) error {
	if len(labels) == 0 {
		return errors.NewModelError("LabelEncoder.Fit", "empty data", errors.ErrEmptyData)
	}

	seen := make(map[string]struct{}, len(labels))
	classes := make([]string, 0)
	for _, l := range labels {
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		classes = append(classes, l)
	}
	sort.Strings(classes)

	le.setClasses(classes)
	le.SetFitted()
	return nil
}

func (le *LabelEncoder) setClasses(classes []string) {
	le.classes = classes
	le.index = make(map[string]int, len(classes))
	for i, c := range classes {
		le.index[c] = i
	}
}

// Transform はラベルを整数コードに変換する
// 学習時に見ていないラベルがあればUnknownCategoryErrorを返す
func (le *LabelEncoder) Transform(labels []string) ([]int, error) {
	if !le.IsFitted() {
		return nil, errors.NewNotFittedError("LabelEncoder", "Transform")
	}

	codes := make([]int, len(labels))
	for i, l := range labels {
		code, ok := le.index[l]
		if !ok {
			return nil, errors.NewUnknownCategoryError("LabelEncoder", l, le.classes)
		}
		codes[i] = code
	}
	return codes, nil
}

// FitTransform はFitとTransformを続けて行う
func (le *LabelEncoder) FitTransform(labels []string) ([]int, error) {
	if err := le.Fit(labels); err != nil {
		return nil, err
	}
	return le.Transform(labels)
}

// InverseTransform は整数コードを元のラベルに戻す
func (le *LabelEncoder) InverseTransform(codes []int) ([]string, error) {
	if !le.IsFitted() {
		return nil, errors.NewNotFittedError("LabelEncoder", "InverseTransform")
	}

	labels := make([]string, len(codes))
	for i, c := range codes {
		if c < 0 || c >= len(le.classes) {
			return nil, errors.NewValidationError("code", "out of range", c)
		}
		labels[i] = le.classes[c]
	}
	return labels, nil
}

// Classes は既知のクラスのコピーを返す
func (le *LabelEncoder) Classes() []string {
	out := make([]string, len(le.classes))
	copy(out, le.classes)
	return out
}

// Contains はラベルが既知かどうかを返す
func (le *LabelEncoder) Contains(label string) bool {
	_, ok := le.index[label]
	return ok
}

// Save はエンコーダーを {"classes": [...]} 形式のJSONで保存する
func (le *LabelEncoder) Save(filename string) error {
	if !le.IsFitted() {
		return errors.NewNotFittedError("LabelEncoder", "Save")
	}
	return model.SaveJSON(labelEncoderArtifact{Classes: le.classes}, filename)
}

// Load はSaveで保存したエンコーダーを読み込む
func (le *LabelEncoder) Load(filename string) error {
	var a labelEncoderArtifact
	if err := model.LoadJSON(&a, filename); err != nil {
		return err
	}
	if len(a.Classes) == 0 {
		return errors.NewModelError("LabelEncoder.Load", "empty classes", errors.ErrEmptyData)
	}
	if !sort.StringsAreSorted(a.Classes) {
		return errors.NewValueError("LabelEncoder.Load", "classes must be sorted")
	}

	le.setClasses(a.Classes)
	le.SetFitted()
	return nil
}
