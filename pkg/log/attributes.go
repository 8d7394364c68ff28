package log

// Attribute keys shared by the workflow packages. Keeping them in one place
// lets log consumers filter on stable names.
const (
	// ComponentKey names the package emitting the record.
	ComponentKey = "component"
	// ModelNameKey identifies the model family or engine.
	ModelNameKey = "model.name"
	// ModelParamsKey carries the hyperparameters of a trained engine.
	ModelParamsKey = "model.params"
	// OperationKey names the operation in progress, e.g. "fit" or "bake".
	OperationKey = "ml.operation"
	// StepKey names a recipe step.
	StepKey = "recipe.step"

	SamplesKey  = "data.samples"
	FeaturesKey = "data.features"
	ColumnKey   = "data.column"
	DroppedKey  = "data.dropped"

	// FoldKey is a resample identifier such as "Fold3".
	FoldKey       = "resample.fold"
	FoldsKey      = "tune.folds"
	AnalysisKey   = "resample.analysis"
	AssessmentKey = "resample.assessment"
	StrataKey     = "resample.strata"

	CandidateKey  = "tune.candidate"
	CandidatesKey = "tune.candidates"
	ParamsKey     = "tune.params"

	MetricNameKey  = "metric.name"
	MetricValueKey = "metric.value"

	DurationMsKey = "perf.duration_ms"
	WorkersKey    = "perf.workers"

	TreesKey = "forest.trees"
	MtryKey  = "forest.mtry"
)

const (
	OperationFit       = "fit"
	OperationPredict   = "predict"
	OperationPrep      = "prep"
	OperationBake      = "bake"
	OperationTransform = "transform"
	OperationSplit     = "split"
	OperationTune      = "tune"
	OperationScore     = "score"
)
