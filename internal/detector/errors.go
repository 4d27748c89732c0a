package detector

import (
	"errors"
	"fmt"
	"os"
)

// ErrModelNotFound is returned when a model file is missing
var ErrModelNotFound = errors.New("detector: model not found")

func checkModel(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrModelNotFound, path)
		}
		return fmt.Errorf("failed to stat model %s: %w", path, err)
	}
	return nil
}
