// Package errors はRENTライブラリ全体のエラーハンドリングと警告システムを提供します。
// 設定エラー・前提条件エラーは致命的なエラーとして返され、
// 退化したフィットや小さなアンサンブルは警告としてグローバルハンドラに送られます。
package errors

import (
	"fmt"
	"log"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	グローバル警告ハンドリング
//
// ===========================================================================
var (
	warningMutex   sync.Mutex
	warningHandler = func(w error) {
		log.Printf("RENT-Warning: %v\n", w)
	}
	// zerologロガー（循環importを避けるため遅延初期化）
	zerologWarnFunc func(warning error)
)

// SetWarningHandler はライブラリ全体の警告ハンドラを設定します。
//
// 例:
//
//	errors.SetWarningHandler(func(w error) {
//	    // 警告を無視する
//	})
func SetWarningHandler(handler func(w error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	warningHandler = handler
}

// SetZerologWarnFunc はzerolog警告関数を設定します（循環importを避けるため）。
// nilを渡すと従来のハンドラに戻ります。
func SetZerologWarnFunc(warnFunc func(warning error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	zerologWarnFunc = warnFunc
}

// Warn は警告を発生させます。
// zerologが設定されている場合は構造化ログとして出力し、そうでなければ従来のハンドラを使用します。
func Warn(w error) {
	warningMutex.Lock()
	defer warningMutex.Unlock()

	if zerologWarnFunc != nil {
		zerologWarnFunc(w)
		return
	}

	if warningHandler != nil {
		warningHandler(w)
	}
}

// ===========================================================================
//
//	警告型
//
// ===========================================================================

// ConvergenceWarning は最適化アルゴリズムが収束しなかった場合に発生する警告です。
type ConvergenceWarning struct {
	Algorithm  string
	Iterations int
	Message    string
}

func (w *ConvergenceWarning) Error() string {
	if w.Message != "" {
		return fmt.Sprintf("%s failed to converge after %d iterations: %s", w.Algorithm, w.Iterations, w.Message)
	}
	return fmt.Sprintf("%s failed to converge after %d iterations. Consider increasing max_iter or adjusting parameters.", w.Algorithm, w.Iterations)
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *ConvergenceWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("algorithm", w.Algorithm).
		Int("iterations", w.Iterations).
		Str("message", w.Message).
		Str("type", "ConvergenceWarning")
}

// NewConvergenceWarning は新しいConvergenceWarningを作成します。
func NewConvergenceWarning(algorithm string, iterations int, message string) *ConvergenceWarning {
	return &ConvergenceWarning{Algorithm: algorithm, Iterations: iterations, Message: message}
}

// UndefinedMetricWarning は評価指標が計算できない場合に発生する警告です。
// 例えば、適合率(precision)を計算する際に、陽性クラスの予測が一つもなかった場合など。
type UndefinedMetricWarning struct {
	Metric    string
	Condition string
	Result    float64 // この条件で返される値
}

func (w *UndefinedMetricWarning) Error() string {
	return fmt.Sprintf("'%s' is ill-defined and being set to %f due to %s.", w.Metric, w.Result, w.Condition)
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *UndefinedMetricWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("metric", w.Metric).
		Str("condition", w.Condition).
		Float64("result", w.Result).
		Str("type", "UndefinedMetricWarning")
}

// NewUndefinedMetricWarning は新しいUndefinedMetricWarningを作成します。
func NewUndefinedMetricWarning(metric, condition string, result float64) *UndefinedMetricWarning {
	return &UndefinedMetricWarning{Metric: metric, Condition: condition, Result: result}
}

// DegenerateFitWarning は正則化によって係数ベクトルがすべてゼロになった場合の警告です。
// Split が -1 の場合、そのハイパーパラメータの全スプリットが退化したことを示します。
type DegenerateFitWarning struct {
	C       float64
	L1Ratio float64
	Split   int
	Stage   string // "ensemble", "cross-validation"
}

func (w *DegenerateFitWarning) Error() string {
	if w.Split < 0 {
		return fmt.Sprintf("all %s fits for C=%g, l1_ratio=%g produced zero coefficients; the combination is excluded", w.Stage, w.C, w.L1Ratio)
	}
	return fmt.Sprintf("%s fit for C=%g, l1_ratio=%g, split %d produced zero coefficients", w.Stage, w.C, w.L1Ratio, w.Split)
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *DegenerateFitWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Float64("C", w.C).
		Float64("l1_ratio", w.L1Ratio).
		Int("split", w.Split).
		Str("stage", w.Stage).
		Str("type", "DegenerateFitWarning")
}

// NewDegenerateFitWarning は新しいDegenerateFitWarningを作成します。
func NewDegenerateFitWarning(stage string, c, l1Ratio float64, split int) *DegenerateFitWarning {
	return &DegenerateFitWarning{C: c, L1Ratio: l1Ratio, Split: split, Stage: stage}
}

// SmallEnsembleWarning はアンサンブルサイズKが小さすぎる場合の警告です。
type SmallEnsembleWarning struct {
	K       int
	Minimum int
}

func (w *SmallEnsembleWarning) Error() string {
	return fmt.Sprintf("K=%d is small; tau statistics are unreliable below %d models, consider a larger ensemble", w.K, w.Minimum)
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *SmallEnsembleWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Int("K", w.K).
		Int("minimum", w.Minimum).
		Str("type", "SmallEnsembleWarning")
}

// NewSmallEnsembleWarning は新しいSmallEnsembleWarningを作成します。
func NewSmallEnsembleWarning(k, minimum int) *SmallEnsembleWarning {
	return &SmallEnsembleWarning{K: k, Minimum: minimum}
}

// ===========================================================================
//
//	構造化されたエラー型
//
// ===========================================================================

// NotFittedError はモデルが未学習の状態で `Predict` などを呼び出した場合のエラーです。
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("rent: %s: this model is not fitted yet. Call Fit() before using %s()", e.ModelName, e.Method)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *NotFittedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("model_name", e.ModelName).
		Str("method", e.Method).
		Str("type", "NotFittedError")
}

// NewNotFittedError は新しいNotFittedErrorを作成し、スタックトレースを付与します。
func NewNotFittedError(modelName, method string) error {
	err := &NotFittedError{ModelName: modelName, Method: method}
	return errors.WithStack(err)
}

// DimensionError は入力データの次元が期待値と異なる場合のエラーです。
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0 for rows, 1 for columns/features
}

func (e *DimensionError) Error() string {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "rows"
	}
	return fmt.Sprintf("rent: %s: dimension mismatch on axis %d (%s). Expected %d, got %d", e.Op, e.Axis, axisName, e.Expected, e.Got)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "rows"
	}
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Int("axis", e.Axis).
		Str("axis_name", axisName).
		Str("type", "DimensionError")
}

// NewDimensionError は新しいDimensionErrorを作成し、スタックトレースを付与します。
func NewDimensionError(op string, expected, got, axis int) error {
	err := &DimensionError{Op: op, Expected: expected, Got: got, Axis: axis}
	return errors.WithStack(err)
}

// ConfigurationError は設定値の検証に失敗した場合のエラーです。
// 学習タスクが一つも開始される前に返されます。
type ConfigurationError struct {
	Param  string
	Reason string
	Value  interface{}
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("rent: invalid configuration for '%s': %s (got: %v)", e.Param, e.Reason, e.Value)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ConfigurationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("param", e.Param).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ConfigurationError")
}

// NewConfigurationError は新しいConfigurationErrorを作成し、スタックトレースを付与します。
func NewConfigurationError(param, reason string, value interface{}) error {
	err := &ConfigurationError{Param: param, Reason: reason, Value: value}
	return errors.WithStack(err)
}

// PreconditionError はメソッドの呼び出し順序が守られていない場合のエラーです。
type PreconditionError struct {
	Op       string
	Required string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("rent: %s: precondition not met. Call %s() first", e.Op, e.Required)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *PreconditionError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("required", e.Required).
		Str("type", "PreconditionError")
}

// NewPreconditionError は新しいPreconditionErrorを作成し、スタックトレースを付与します。
func NewPreconditionError(op, required string) error {
	err := &PreconditionError{Op: op, Required: required}
	return errors.WithStack(err)
}

// NewNotTrainedError はアンサンブルが未学習のまま結果を要求された場合のPreconditionErrorです。
func NewNotTrainedError(op string) error {
	err := &PreconditionError{Op: op, Required: "Train"}
	return errors.WithStack(err)
}

// NewEmptySelectionError は選択が空のまま検証を要求された場合のPreconditionErrorです。
// Is(err, ErrEmptySelection) はtrueになります。
func NewEmptySelectionError(op string) error {
	err := &PreconditionError{Op: op, Required: "a non-empty feature selection"}
	return errors.WithStack(errors.Mark(err, ErrEmptySelection))
}

// NewNotSelectedError は特徴選択の前に検証を要求された場合のPreconditionErrorです。
func NewNotSelectedError(op string) error {
	err := &PreconditionError{Op: op, Required: "SelectFeatures"}
	return errors.WithStack(err)
}

// IsNotTrained はエラーが学習前呼び出しのPreconditionErrorかどうかを判定します。
func IsNotTrained(err error) bool {
	var pe *PreconditionError
	return errors.As(err, &pe) && pe.Required == "Train"
}

// UnsupportedClassifierError は分類器の値がタスクに対応していない場合のエラーです。
type UnsupportedClassifierError struct {
	Classifier string
	Task       string
}

func (e *UnsupportedClassifierError) Error() string {
	return fmt.Sprintf("rent: classifier '%s' is not supported for %s", e.Classifier, e.Task)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *UnsupportedClassifierError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("classifier", e.Classifier).
		Str("task", e.Task).
		Str("type", "UnsupportedClassifierError")
}

// NewUnsupportedClassifierError は新しいUnsupportedClassifierErrorを作成し、スタックトレースを付与します。
func NewUnsupportedClassifierError(classifier, task string) error {
	err := &UnsupportedClassifierError{Classifier: classifier, Task: task}
	return errors.WithStack(err)
}

// ValueError は引数の値が不適切または不正な場合に発生するエラーです。
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("rent: %s: %s", e.Op, e.Message)
}

// NewValueError は新しいValueErrorを作成し、スタックトレースを付与します。
func NewValueError(op, message string) error {
	err := &ValueError{Op: op, Message: message}
	return errors.WithStack(err)
}

// ModelError は機械学習モデルに関する一般的なエラーです。
type ModelError struct {
	Op   string
	Kind string
	Err  error
}

func (e *ModelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("rent: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("rent: %s: %s", e.Op, e.Kind)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// NewModelError は新しいModelErrorを作成し、スタックトレースを付与します。
func NewModelError(op, kind string, err error) error {
	modelErr := &ModelError{Op: op, Kind: kind, Err: err}
	return errors.WithStack(modelErr)
}

// NumericalInstabilityError は数値計算が不安定になった場合のエラーです。
type NumericalInstabilityError struct {
	Operation string
	Values    []float64
	Iteration int
}

func (e *NumericalInstabilityError) Error() string {
	valStr := ""
	for i, v := range e.Values {
		if i > 0 {
			valStr += ", "
		}
		if i >= 5 {
			valStr += "..."
			break
		}
		valStr += fmt.Sprintf("%.6g", v)
	}
	return fmt.Sprintf("rent: numerical instability detected in %s at iteration %d. Values: [%s]",
		e.Operation, e.Iteration, valStr)
}

// NewNumericalInstabilityError は新しいNumericalInstabilityErrorを作成します。
func NewNumericalInstabilityError(operation string, values []float64, iteration int) error {
	err := &NumericalInstabilityError{
		Operation: operation,
		Values:    values,
		Iteration: iteration,
	}
	return errors.WithStack(err)
}

// ===========================================================================
//
//	cockroachdb/errors ラッパー関数
//
// ===========================================================================

// Is はエラーが特定のターゲットエラーかどうかを判定します。
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As はエラーが特定の型にキャスト可能かどうかを判定します。
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap は既存のエラーをメッセージ付きでラップします。
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf は既存のエラーをフォーマット文字列でラップします。
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New は新しいエラーを作成します。
func New(message string) error {
	return errors.New(message)
}

// Newf は新しいフォーマット済みエラーを作成します。
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack はエラーにスタックトレースを付与します。
func WithStack(err error) error {
	return errors.WithStack(err)
}

// Mark はerrにreferenceの識別情報を付与し、Is(err, reference)をtrueにします。
func Mark(err, reference error) error {
	return errors.Mark(err, reference)
}

// ===========================================================================
//
//	共通エラー変数
//
// ===========================================================================

var (
	// ErrEmptyData は空のデータが渡された場合のエラーです。
	ErrEmptyData = New("empty data")

	// ErrSingularMatrix は特異行列の場合のエラーです。
	ErrSingularMatrix = New("singular matrix")

	// ErrNoValidCombination はトレードオフ表のすべてのセルがNaNの場合のエラーです。
	ErrNoValidCombination = New("no hyperparameter combination produced a non-degenerate fit")

	// ErrEmptySelection は選択された特徴量が一つもない場合のエラーです。
	ErrEmptySelection = New("no features satisfy the selection cutoffs")
)
