package common

type causer interface {
	Cause() error
}

// Cause walks the chain of wrapped errors (as produced by
// github.com/pkg/errors) and returns the originating error. Mirrors the
// teacher's common/logger.go helper of the same name and purpose.
func Cause(err error) error {
	for err != nil {
		c, ok := err.(causer)
		if !ok {
			break
		}
		err = c.Cause()
	}
	return err
}
