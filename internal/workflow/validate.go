package workflow

import (
	"errors"
	"fmt"
)

var (
	ErrNoFunctionInvoke = errors.New("no FunctionInvoke specified in workflow")
	ErrMissingSection   = errors.New("workflow section missing or not a mapping")
)

// Validate checks the structure the trigger depends on: FunctionInvoke is
// set and the three sections it reads are mappings. Whether the invoked
// function and its server resolve is left to dispatch, which reports
// those failures with their own error kinds. The rest of the workflow
// schema is not checked.
func (d Document) Validate() error {
	var errs []error
	if d.FunctionInvoke() == "" {
		errs = append(errs, ErrNoFunctionInvoke)
	}
	for _, key := range []string{KeyFunctionList, KeyComputeServers} {
		if _, ok := d.section(key); !ok {
			errs = append(errs, fmt.Errorf("%w: %s", ErrMissingSection, key))
		}
	}
	if v, present := d[KeyDataStores]; present && v != nil {
		if _, ok := d.section(KeyDataStores); !ok {
			errs = append(errs, fmt.Errorf("%w: %s", ErrMissingSection, KeyDataStores))
		}
	}
	return errors.Join(errs...)
}
