package api

import "errors"

// Sentinel error kinds for this package.
var (
	ErrBadRequest  = errors.New("bad request")
	ErrMissingFile = errors.New("missing csv_file upload field")
	ErrNotCSV      = errors.New("uploaded file must have a .csv extension")
)
