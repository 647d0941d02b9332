package lowstock

import "errors"

var ErrAlertNotFound = errors.New("alert not found")
