// Package tree implements a CART decision tree regressor.
package tree

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/foodcast/core/model"
	"github.com/YuminosukeSato/foodcast/metrics"
	"github.com/YuminosukeSato/foodcast/pkg/errors"
)

// leafFeature はリーフノードを表すFeatureの値
const leafFeature = -1

// minImpurityDecrease より小さい改善しか得られない分割は行わない
const minImpurityDecrease = 1e-7

// Node は平坦な配列で保持される木のノード
// gobでそのまま保存できるよう全フィールドを公開している
type Node struct {
	// Feature は分割に使う特徴量のインデックス。リーフでは -1
	Feature int
	// Threshold は分割閾値。x[Feature] <= Threshold なら左へ
	Threshold float64
	// Left, Right は子ノードのインデックス
	Left, Right int
	// Value はノードに落ちたサンプルの目的変数の平均
	Value float64
	// NSamples はノードに落ちたサンプル数
	NSamples int
	// Impurity はノードの二乗誤差（分散）
	Impurity float64
}

// IsLeaf はノードがリーフかどうかを返す
func (n Node) IsLeaf() bool {
	return n.Feature == leafFeature
}

// DecisionTreeRegressor は二乗誤差基準のCART回帰木
type DecisionTreeRegressor struct {
	model.BaseEstimator

	// ハイパーパラメータ
	MaxDepth        int   // 0以下は無制限
	MinSamplesSplit int   // 分割に必要な最小サンプル数
	MinSamplesLeaf  int   // リーフの最小サンプル数
	MaxFeatures     int   // 分割ごとに試す特徴量数。0以下は全特徴量
	RandomState     int64 // 特徴量サンプリングの乱数シード

	// 学習結果
	Nodes       []Node
	NFeatures   int
	Importances []float64
}

// Option はDecisionTreeRegressorの設定関数
type Option func(*DecisionTreeRegressor)

// WithMaxDepth は木の最大深さを設定する
func WithMaxDepth(depth int) Option {
	return func(t *DecisionTreeRegressor) { t.MaxDepth = depth }
}

// WithMinSamplesSplit は分割に必要な最小サンプル数を設定する
func WithMinSamplesSplit(n int) Option {
	return func(t *DecisionTreeRegressor) { t.MinSamplesSplit = n }
}

// WithMinSamplesLeaf はリーフの最小サンプル数を設定する
func WithMinSamplesLeaf(n int) Option {
	return func(t *DecisionTreeRegressor) { t.MinSamplesLeaf = n }
}

// WithMaxFeatures は分割ごとに試す特徴量数を設定する
func WithMaxFeatures(n int) Option {
	return func(t *DecisionTreeRegressor) { t.MaxFeatures = n }
}

// WithRandomState は乱数シードを設定する
func WithRandomState(seed int64) Option {
	return func(t *DecisionTreeRegressor) { t.RandomState = seed }
}

// NewDecisionTreeRegressor は新しい回帰木を作成する
//
// 使用例:
//
//	dt := tree.NewDecisionTreeRegressor(tree.WithMaxDepth(8))
//	err := dt.Fit(X, y)
//	pred, err := dt.Predict(XTest)
func NewDecisionTreeRegressor(opts ...Option) *DecisionTreeRegressor {
	t := &DecisionTreeRegressor{
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Fit は全サンプルで木を学習する
func (t *DecisionTreeRegressor) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "DecisionTreeRegressor.Fit")

	yVec, err := metrics.ColumnToVec(y)
	if err != nil {
		return err
	}
	rows, _ := X.Dims()
	samples := make([]int, rows)
	for i := range samples {
		samples[i] = i
	}
	return t.FitSamples(X, vecToSlice(yVec), samples)
}

// FitSamples はsamplesで指定した行だけを使って木を学習する
// samplesには重複があってよく、ブートストラップ標本をそのまま渡せる
func (t *DecisionTreeRegressor) FitSamples(X mat.Matrix, y []float64, samples []int) error {
	rows, cols := X.Dims()
	if rows == 0 || cols == 0 || len(samples) == 0 {
		return errors.NewModelError("DecisionTreeRegressor.Fit", "empty data", errors.ErrEmptyData)
	}
	if len(y) != rows {
		return errors.NewDimensionError("DecisionTreeRegressor.Fit", rows, len(y), 0)
	}
	if err := t.validateParams(); err != nil {
		return err
	}
	if err := errors.CheckMatrix("DecisionTreeRegressor.Fit", X, rows, cols); err != nil {
		return err
	}
	if err := errors.CheckNumericalStability("DecisionTreeRegressor.Fit", y, 0); err != nil {
		return err
	}

	columns := make([][]float64, cols)
	for j := range columns {
		columns[j] = make([]float64, rows)
		for i := 0; i < rows; i++ {
			columns[j][i] = X.At(i, j)
		}
	}

	b := &builder{
		tree:        t,
		columns:     columns,
		y:           y,
		rng:         rand.New(rand.NewPCG(uint64(t.RandomState), uint64(t.RandomState)>>1|1)),
		importances: make([]float64, cols),
	}

	t.Nodes = t.Nodes[:0]
	t.NFeatures = cols
	idx := make([]int, len(samples))
	copy(idx, samples)
	b.build(idx, 0)

	var total float64
	for _, v := range b.importances {
		total += v
	}
	if total > 0 {
		for j := range b.importances {
			b.importances[j] /= total
		}
	}
	t.Importances = b.importances

	t.SetFitted()
	return nil
}

func (t *DecisionTreeRegressor) validateParams() error {
	if t.MinSamplesSplit < 2 {
		return errors.NewValidationError("min_samples_split", "must be at least 2", t.MinSamplesSplit)
	}
	if t.MinSamplesLeaf < 1 {
		return errors.NewValidationError("min_samples_leaf", "must be at least 1", t.MinSamplesLeaf)
	}
	return nil
}

// builder は学習中だけ使う作業領域
type builder struct {
	tree        *DecisionTreeRegressor
	columns     [][]float64
	y           []float64
	rng         *rand.Rand
	importances []float64
}

type split struct {
	feature   int
	threshold float64
	pos       int // ソート済みidxの分割位置
	childSSE  float64
}

// build はidxのサンプルでノードを作り、そのインデックスを返す
func (b *builder) build(idx []int, depth int) int {
	n := len(idx)
	var sum, sumSq float64
	for _, i := range idx {
		sum += b.y[i]
		sumSq += b.y[i] * b.y[i]
	}
	mean := sum / float64(n)
	sse := math.Max(sumSq-sum*sum/float64(n), 0)

	t := b.tree
	nodeID := len(t.Nodes)
	t.Nodes = append(t.Nodes, Node{
		Feature:  leafFeature,
		Left:     -1,
		Right:    -1,
		Value:    mean,
		NSamples: n,
		Impurity: sse / float64(n),
	})

	if t.MaxDepth > 0 && depth >= t.MaxDepth {
		return nodeID
	}
	if n < t.MinSamplesSplit || n < 2*t.MinSamplesLeaf || sse <= minImpurityDecrease {
		return nodeID
	}

	best, ok := b.bestSplit(idx, sse)
	if !ok {
		return nodeID
	}

	col := b.columns[best.feature]
	sortByColumn(idx, col)
	left := idx[:best.pos]
	right := idx[best.pos:]

	b.importances[best.feature] += sse - best.childSSE

	l := b.build(left, depth+1)
	r := b.build(right, depth+1)

	node := &t.Nodes[nodeID]
	node.Feature = best.feature
	node.Threshold = best.threshold
	node.Left = l
	node.Right = r
	return nodeID
}

// bestSplit は子ノードの二乗誤差の和が最小になる分割を探す
func (b *builder) bestSplit(idx []int, parentSSE float64) (split, bool) {
	nFeatures := len(b.columns)
	features := make([]int, nFeatures)
	for j := range features {
		features[j] = j
	}
	if m := b.tree.MaxFeatures; m > 0 && m < nFeatures {
		b.rng.Shuffle(nFeatures, func(i, j int) { features[i], features[j] = features[j], features[i] })
		features = features[:m]
	}

	n := len(idx)
	minLeaf := b.tree.MinSamplesLeaf
	sorted := make([]int, n)
	best := split{childSSE: math.Inf(1)}
	found := false

	for _, f := range features {
		col := b.columns[f]
		copy(sorted, idx)
		sortByColumn(sorted, col)

		if col[sorted[0]] == col[sorted[n-1]] {
			continue
		}

		var totalSum, totalSq float64
		for _, i := range sorted {
			totalSum += b.y[i]
			totalSq += b.y[i] * b.y[i]
		}

		var leftSum, leftSq float64
		for pos := 1; pos < n; pos++ {
			yi := b.y[sorted[pos-1]]
			leftSum += yi
			leftSq += yi * yi

			if pos < minLeaf || n-pos < minLeaf {
				continue
			}
			lo, hi := col[sorted[pos-1]], col[sorted[pos]]
			if lo == hi {
				continue
			}

			nl, nr := float64(pos), float64(n-pos)
			rightSum, rightSq := totalSum-leftSum, totalSq-leftSq
			childSSE := (leftSq - leftSum*leftSum/nl) + (rightSq - rightSum*rightSum/nr)
			if childSSE < best.childSSE {
				threshold := lo + (hi-lo)/2
				// 浮動小数点の丸めで閾値が上側の値に一致した場合
				if threshold == hi {
					threshold = lo
				}
				best = split{feature: f, threshold: threshold, pos: pos, childSSE: childSSE}
				found = true
			}
		}
	}

	if !found || parentSSE-best.childSSE <= minImpurityDecrease {
		return split{}, false
	}
	best.childSSE = math.Max(best.childSSE, 0)
	return best, true
}

// sortByColumn はidxを特徴量値の昇順に安定ソートする
func sortByColumn(idx []int, col []float64) {
	sort.SliceStable(idx, func(a, b int) bool { return col[idx[a]] < col[idx[b]] })
}

// Predict は各行の予測値をn×1行列で返す
func (t *DecisionTreeRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !t.IsFitted() {
		return nil, errors.NewNotFittedError("DecisionTreeRegressor", "Predict")
	}
	rows, cols := X.Dims()
	if cols != t.NFeatures {
		return nil, errors.NewDimensionError("DecisionTreeRegressor.Predict", t.NFeatures, cols, 1)
	}

	out := mat.NewDense(rows, 1, nil)
	row := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(row, i, X)
		out.Set(i, 0, t.PredictRow(row))
	}
	return out, nil
}

// PredictRow は1サンプルの予測値を返す。入力の検証は呼び出し側で行う
func (t *DecisionTreeRegressor) PredictRow(row []float64) float64 {
	n := t.Nodes[0]
	for !n.IsLeaf() {
		if row[n.Feature] <= n.Threshold {
			n = t.Nodes[n.Left]
		} else {
			n = t.Nodes[n.Right]
		}
	}
	return n.Value
}

// Score は決定係数R²を返す
func (t *DecisionTreeRegressor) Score(X, y mat.Matrix) (float64, error) {
	pred, err := t.Predict(X)
	if err != nil {
		return 0, err
	}
	yVec, err := metrics.ColumnToVec(y)
	if err != nil {
		return 0, err
	}
	pVec, _ := metrics.ColumnToVec(pred)
	return metrics.R2Score(yVec, pVec)
}

// FeatureImportances は不純度減少量に基づく特徴量重要度を返す（合計1）
func (t *DecisionTreeRegressor) FeatureImportances() []float64 {
	out := make([]float64, len(t.Importances))
	copy(out, t.Importances)
	return out
}

// GetDepth は木の深さを返す。根だけの木は深さ0
func (t *DecisionTreeRegressor) GetDepth() int {
	if len(t.Nodes) == 0 {
		return 0
	}
	var depth func(i int) int
	depth = func(i int) int {
		n := t.Nodes[i]
		if n.IsLeaf() {
			return 0
		}
		return 1 + max(depth(n.Left), depth(n.Right))
	}
	return depth(0)
}

// GetNLeaves はリーフ数を返す
func (t *DecisionTreeRegressor) GetNLeaves() int {
	count := 0
	for _, n := range t.Nodes {
		if n.IsLeaf() {
			count++
		}
	}
	return count
}

// GetParams はハイパーパラメータを返す
func (t *DecisionTreeRegressor) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"criterion":         "squared_error",
		"max_depth":         t.MaxDepth,
		"min_samples_split": t.MinSamplesSplit,
		"min_samples_leaf":  t.MinSamplesLeaf,
		"max_features":      t.MaxFeatures,
		"random_state":      t.RandomState,
	}
}

func vecToSlice(v *mat.VecDense) []float64 {
	out := make([]float64, v.Len())
	for i := range out {
		out[i] = v.AtVec(i)
	}
	return out
}
