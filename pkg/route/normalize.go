package route

import (
	"github.com/blade-go/blade/internal/errors"
	"github.com/blade-go/blade/pkg/routepath"
)

// NormalizePath computes the final path for a declared value under a
// namespace and suffix. Grammar errors are returned as InvalidRoutePath.
func NormalizePath(value, namespace, suffix string) (string, error) {
	p, err := routepath.Normalize(value, namespace, suffix)
	if err != nil {
		return "", invalidPath(namespace+value+suffix, err)
	}
	return p, nil
}

func invalidPath(pattern string, err error) *errors.BladeError {
	return errors.New(errors.CodeInvalidRoutePath).
		WithDetailf("pattern %q: %v", pattern, err).
		Wrap(err)
}
