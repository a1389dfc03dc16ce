// Package metrics provides regression metrics over gonum vectors.
package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/foodcast/pkg/errors"
)

// Regression はモデル評価で使う回帰指標のまとめ
type Regression struct {
	R2   float64 `json:"r2"`
	MAE  float64 `json:"mae"`
	RMSE float64 `json:"rmse"`
}

// Evaluate はR²、MAE、RMSEをまとめて計算する
func Evaluate(yTrue, yPred *mat.VecDense) (Regression, error) {
	var r Regression
	var err error
	if r.R2, err = R2Score(yTrue, yPred); err != nil {
		return Regression{}, err
	}
	if r.MAE, err = MAE(yTrue, yPred); err != nil {
		return Regression{}, err
	}
	if r.RMSE, err = RMSE(yTrue, yPred); err != nil {
		return Regression{}, err
	}
	return r, nil
}

// checkPair は2つのベクトルが空でなく同じ長さであることを確認し、
// 生のスライスを返す
func checkPair(op string, yTrue, yPred *mat.VecDense) ([]float64, []float64, error) {
	n := yTrue.Len()
	if n == 0 {
		return nil, nil, errors.NewValueError(op, "empty vector")
	}
	if yPred.Len() != n {
		return nil, nil, errors.NewDimensionError(op, n, yPred.Len(), 0)
	}
	return vecData(yTrue), vecData(yPred), nil
}

func vecData(v *mat.VecDense) []float64 {
	out := make([]float64, v.Len())
	for i := range out {
		out[i] = v.AtVec(i)
	}
	return out
}

// MSE は平均二乗誤差を計算する
func MSE(yTrue, yPred *mat.VecDense) (float64, error) {
	t, p, err := checkPair("MSE", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	diff := make([]float64, len(t))
	floats.SubTo(diff, t, p)
	return floats.Dot(diff, diff) / float64(len(t)), nil
}

// RMSE は平方根平均二乗誤差を計算する
func RMSE(yTrue, yPred *mat.VecDense) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAE は平均絶対誤差を計算する
func MAE(yTrue, yPred *mat.VecDense) (float64, error) {
	t, p, err := checkPair("MAE", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return floats.Distance(t, p, 1) / float64(len(t)), nil
}

// R2Score は決定係数を計算する
//
// yTrueが定数のときR²は定義できない。その場合はUndefinedMetricWarningを
// 出し、予測が完全一致なら1、そうでなければ0を返す
func R2Score(yTrue, yPred *mat.VecDense) (float64, error) {
	t, p, err := checkPair("R2Score", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	mean := stat.Mean(t, nil)
	var tss, rss float64
	for i := range t {
		tss += (t[i] - mean) * (t[i] - mean)
		rss += (t[i] - p[i]) * (t[i] - p[i])
	}

	if tss == 0 {
		result := 0.0
		if rss == 0 {
			result = 1.0
		}
		errors.Warn(errors.NewUndefinedMetricWarning("r2", "yTrue has no variance", result))
		return result, nil
	}

	return 1 - rss/tss, nil
}

// ColumnToVec はn×1行列をVecDenseに変換する
func ColumnToVec(m mat.Matrix) (*mat.VecDense, error) {
	r, c := m.Dims()
	if c != 1 {
		return nil, errors.NewValueError("ColumnToVec", "must be a column vector (n×1 matrix)")
	}
	if v, ok := m.(*mat.VecDense); ok {
		return v, nil
	}
	v := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		v.SetVec(i, m.At(i, 0))
	}
	return v, nil
}
