package batchsize

import "errors"

// Error variables for batch size operations.
var (
	ErrConfigFileNotFound = errors.New("config file not found")
	ErrConfigFileRead     = errors.New("cannot read config file")
	ErrConfigInvalid      = errors.New("invalid config file")
	ErrTableEmpty         = errors.New("table cannot be empty")
	ErrCommandEmpty       = errors.New("command cannot be empty")
	ErrInvalidRetryPause  = errors.New("invalid retry_pause")
	ErrInvalidMaxTries    = errors.New("max_tries must be at least 1")
	ErrTableInvalid       = errors.New("invalid batch size table")
	ErrMissingColumn      = errors.New("missing column")
	ErrInvalidBatchSize   = errors.New("invalid batch size")
	ErrDuplicateRecord    = errors.New("more than one finished record")
	ErrModelRequired      = errors.New("model is required")
	ErrDataDirRequired    = errors.New("data directory is required")
)
