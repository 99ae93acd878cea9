package appconfig

import (
	"exusiai.dev/seqwindow/internal/app/appcontext"
)

type ConfigSpec struct {
	// LogJsonStdout is whether to log JSON logs (instead of pretty-print logs) to stderr for the ease of log collection.
	LogJsonStdout bool `split_words:"true" default:"false"`

	// LogFile is the rotating JSON log file. Leaving this empty disables file logging.
	LogFile string `split_words:"true" default:"logs/seqwindow.log"`

	// LogFileMaxSizeMB is the size at which the log file is rotated.
	LogFileMaxSizeMB int `split_words:"true" default:"50"`

	// DevMode to indicate development mode. When true, logging runs at trace level.
	DevMode bool `split_words:"true"`

	// WindowLength is the number of consecutive seconds in every input window.
	WindowLength int `split_words:"true" default:"20"`

	// Horizon is the number of seconds after the anchor at which the main label is evaluated.
	Horizon int `split_words:"true" default:"10"`

	// MinSessionLength drops sessions whose length (max sec + 1) is shorter than this.
	MinSessionLength int `split_words:"true" default:"40"`

	// Normalize standardizes feature columns to zero mean and unit variance.
	Normalize bool `split_words:"true" default:"true"`

	// NormScope selects the rows statistics are computed over: all, train.
	NormScope string `split_words:"true" default:"all"`

	// Features overrides the default feature order. Empty means the default 21-feature list.
	Features FeatureList `split_words:"true"`

	// Tasks lists the label families to emit. miss is always emitted.
	// Available tasks are: miss, acc, mini, score.
	Tasks FeatureList `split_words:"true" default:"miss"`

	// MissThreshold is the miss increase at which y_bin fires.
	MissThreshold float64 `split_words:"true" default:"1"`

	// AccHorizon and AccThreshold configure the accuracy-drop family.
	AccHorizon   int     `split_words:"true" default:"5"`
	AccThreshold float64 `split_words:"true" default:"10"`

	// MiniHorizon is the horizon of the mini-objective failure family.
	MiniHorizon int `split_words:"true" default:"10"`

	// ScoreThreshold is the score drop at which y_score fires.
	ScoreThreshold float64 `split_words:"true" default:"1"`

	// GapPolicy is how missing seconds inside a session are handled: fill, reject, ignore.
	GapPolicy string `split_words:"true" default:"fill"`

	// MinExamples is the smallest number of windows a build may produce without failing.
	MinExamples int `split_words:"true" default:"200"`

	// SplitSeed salts the per-session train/val/test hash.
	SplitSeed string `split_words:"true" default:"seqwindow"`

	// TrainRatio and ValRatio are the split proportions; test gets the remainder.
	TrainRatio float64 `split_words:"true" default:"0.8"`
	ValRatio   float64 `split_words:"true" default:"0.1"`

	// infrastructure components connection instructions

	// ArchiveS3Bucket is the bucket that built datasets are uploaded to with --upload.
	ArchiveS3Bucket string `split_words:"true"`

	// ArchiveS3Prefix is the key prefix with no leading slash but optionally (typically) with trailing slash.
	ArchiveS3Prefix string `split_words:"true" default:"datasets/"`

	// ArchiveS3Region is the region of the archive bucket.
	ArchiveS3Region string `split_words:"true" default:"us-east-1"`

	// ArchiveS3Endpoint overrides the S3 endpoint, e.g. for MinIO. Path-style addressing is used when set.
	ArchiveS3Endpoint string `split_words:"true"`

	// AwsAccessKey and AwsSecretKey are static credentials. When empty, the default AWS credential chain is used.
	AwsAccessKey string `split_words:"true"`
	AwsSecretKey string `split_words:"true"`

	// PushgatewayURL is the Prometheus Pushgateway that build metrics are pushed to. Empty disables pushing.
	PushgatewayURL string `split_words:"true"`

	// SentryDSN is the DSN of the Sentry server. See https://pkg.go.dev/github.com/getsentry/sentry-go#ClientOptions
	SentryDSN string `split_words:"true"`
}

type Config struct {
	// ConfigSpec is the configuration specification injected to the config.
	ConfigSpec

	// AppContext is the application context
	AppContext appcontext.Ctx
}
