package config

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyRoot indicates a missing source root
	ErrEmptyRoot = errors.New("empty source root")

	// ErrInvalidPhaseSizes indicates a negative phase size
	ErrInvalidPhaseSizes = errors.New("invalid phase sizes")

	// ErrInvalidTolerance indicates a negative line tolerance
	ErrInvalidTolerance = errors.New("invalid line tolerance")

	// ErrInvalidWorkers indicates a negative worker count
	ErrInvalidWorkers = errors.New("invalid workers")

	// ErrInvalidContextLines indicates a negative snippet padding
	ErrInvalidContextLines = errors.New("invalid context lines")
)

// Validate checks that the configuration is valid and complete.
func Validate(cfg *Config) error {
	var errs []error

	if err := validateSource(&cfg.Source); err != nil {
		errs = append(errs, err)
	}
	if err := validateAnalysis(&cfg.Analysis); err != nil {
		errs = append(errs, err)
	}
	if err := validateReport(&cfg.Report); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}
	return nil
}

func validateSource(cfg *SourceConfig) error {
	// Include and ignore patterns can be empty - the scanner handles
	// empty pattern lists gracefully.
	if strings.TrimSpace(cfg.Root) == "" {
		return fmt.Errorf("%w: root is required", ErrEmptyRoot)
	}
	return nil
}

func validateAnalysis(cfg *AnalysisConfig) error {
	var errs []error

	for i, size := range cfg.PhaseSizes {
		if size < 0 {
			errs = append(errs, fmt.Errorf("%w: phase_sizes[%d] is negative, got %d", ErrInvalidPhaseSizes, i, size))
		}
	}
	if cfg.LineTolerance < 0 {
		errs = append(errs, fmt.Errorf("%w: line_tolerance cannot be negative, got %d", ErrInvalidTolerance, cfg.LineTolerance))
	}
	if cfg.Workers < 0 {
		errs = append(errs, fmt.Errorf("%w: workers cannot be negative, got %d", ErrInvalidWorkers, cfg.Workers))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}
	return nil
}

func validateReport(cfg *ReportConfig) error {
	if cfg.ContextLines < 0 {
		return fmt.Errorf("%w: context_lines cannot be negative, got %d", ErrInvalidContextLines, cfg.ContextLines)
	}
	return nil
}

// joinErrors combines multiple errors into a single error with clear formatting.
func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	if len(errs) == 1 {
		return errs[0]
	}

	var msgs []string
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}

	return fmt.Errorf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}
