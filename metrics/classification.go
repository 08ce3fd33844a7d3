package metrics

import (
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/rent/pkg/errors"
)

// ScoreFunc scores predictions against ground truth. Larger is better.
type ScoreFunc func(yTrue, yPred *mat.VecDense) (float64, error)

// ConfusionMatrix holds binary classification counts. The positive class is 1.
type ConfusionMatrix struct {
	TP, TN, FP, FN float64
}

// Total returns the number of samples counted.
func (c ConfusionMatrix) Total() float64 {
	return c.TP + c.TN + c.FP + c.FN
}

// BinaryConfusion counts yTrue/yPred pairs. Both vectors must hold 0/1 labels.
func BinaryConfusion(yTrue, yPred *mat.VecDense) (ConfusionMatrix, error) {
	n, err := checkPair("BinaryConfusion", yTrue, yPred)
	if err != nil {
		return ConfusionMatrix{}, err
	}
	var c ConfusionMatrix
	for i := 0; i < n; i++ {
		t, p := yTrue.AtVec(i), yPred.AtVec(i)
		if (t != 0 && t != 1) || (p != 0 && p != 1) {
			return ConfusionMatrix{}, errors.NewValueError("BinaryConfusion", "labels must be 0 or 1")
		}
		switch {
		case t == 1 && p == 1:
			c.TP++
		case t == 0 && p == 0:
			c.TN++
		case t == 0 && p == 1:
			c.FP++
		default:
			c.FN++
		}
	}
	return c, nil
}

// Accuracy は正解率を計算する
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	c, err := BinaryConfusion(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return (c.TP + c.TN) / c.Total(), nil
}

// Precision は陽性クラスの適合率を計算する。陽性の予測がない場合は0。
func Precision(yTrue, yPred *mat.VecDense) (float64, error) {
	c, err := BinaryConfusion(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	if c.TP+c.FP == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("precision", "no predicted samples", 0))
		return 0, nil
	}
	return c.TP / (c.TP + c.FP), nil
}

// Recall は陽性クラスの再現率を計算する。陽性サンプルがない場合は0。
func Recall(yTrue, yPred *mat.VecDense) (float64, error) {
	c, err := BinaryConfusion(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	if c.TP+c.FN == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("recall", "no true samples", 0))
		return 0, nil
	}
	return c.TP / (c.TP + c.FN), nil
}

// F1 は適合率と再現率の調和平均を計算する
func F1(yTrue, yPred *mat.VecDense) (float64, error) {
	c, err := BinaryConfusion(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	denom := 2*c.TP + c.FP + c.FN
	if denom == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("f1", "no true nor predicted samples", 0))
		return 0, nil
	}
	return 2 * c.TP / denom, nil
}

// MCC はMatthews相関係数を計算する。分母が0の場合は0を返す。
func MCC(yTrue, yPred *mat.VecDense) (float64, error) {
	c, err := BinaryConfusion(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	denom := math.Sqrt((c.TP + c.FP) * (c.TP + c.FN) * (c.TN + c.FP) * (c.TN + c.FN))
	return errors.SafeDivide(c.TP*c.TN-c.FP*c.FN, denom), nil
}

var classificationScorers = map[string]ScoreFunc{
	"accuracy":  Accuracy,
	"f1":        F1,
	"precision": Precision,
	"recall":    Recall,
	"mcc":       MCC,
}

var regressionScorers = map[string]ScoreFunc{
	"r2": R2Score,
}

// ClassificationScorer looks up a classification metric by name
// (accuracy, f1, precision, recall, mcc).
func ClassificationScorer(name string) (ScoreFunc, bool) {
	fn, ok := classificationScorers[strings.ToLower(name)]
	return fn, ok
}

// RegressionScorer looks up a regression metric by name (r2).
func RegressionScorer(name string) (ScoreFunc, bool) {
	fn, ok := regressionScorers[strings.ToLower(name)]
	return fn, ok
}
