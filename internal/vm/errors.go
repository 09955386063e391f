package vm

import cerr "corevm/internal/errors"

// Thin fmt.Errorf-shaped wrappers around internal/errors' per-kind
// constructors, so the rest of this package reads like ordinary Go error
// construction instead of repeating the errors.New* package prefix.
func typeErrorf(format string, args ...interface{}) error {
	return cerr.NewTypeErrorf(format, args...)
}

func valueErrorf(format string, args ...interface{}) error {
	return cerr.NewValueErrorf(format, args...)
}

func indexErrorf(format string, args ...interface{}) error {
	return cerr.NewIndexErrorf(format, args...)
}

func keyErrorf(format string, args ...interface{}) error {
	return cerr.NewKeyErrorf(format, args...)
}

func attributeErrorf(format string, args ...interface{}) error {
	return cerr.NewAttributeErrorf(format, args...)
}

func nameErrorf(format string, args ...interface{}) error {
	return cerr.NewNameErrorf(format, args...)
}

func zeroDivisionErrorf(format string, args ...interface{}) error {
	return cerr.NewZeroDivisionErrorf(format, args...)
}

func overflowErrorf(format string, args ...interface{}) error {
	return cerr.NewOverflowErrorf(format, args...)
}

func recursionErrorf(format string, args ...interface{}) error {
	return cerr.NewRecursionErrorf(format, args...)
}

func notImplementedErrorf(format string, args ...interface{}) error {
	return cerr.NewNotImplementedErrorf(format, args...)
}
