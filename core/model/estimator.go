package model

import "gonum.org/v1/gonum/mat"

// Fitter は学習可能なモデルのインターフェース
type Fitter interface {
	// Fit はモデルを訓練データで学習させる
	Fit(X, y mat.Matrix) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict は入力データに対する予測を行う
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Scorer はスコアを計算できるモデルのインターフェース
type Scorer interface {
	// Score は予測の決定係数R²を返す
	Score(X, y mat.Matrix) (float64, error)
}

// Regressor は回帰モデルのインターフェース
type Regressor interface {
	Fitter
	Predictor
	Scorer
	IsFitted() bool
}

// Persistable はファイルに保存・読み込みできるモデルのインターフェース
type Persistable interface {
	Save(path string) error
	Load(path string) error
}
