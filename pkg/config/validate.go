package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks every section of the configuration.
func (c Config) Validate() error {
	return describe(validate.Struct(c))
}

// Validate checks the server section on its own.
func (c ServerConfig) Validate() error {
	return describe(validate.Struct(c))
}

// Validate checks the jobs section on its own.
func (c JobsConfig) Validate() error {
	return describe(validate.Struct(c))
}

// describe flattens validator errors into a single readable error.
func describe(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: must satisfy %s=%s (got %v)", fe.Namespace(), fe.Tag(), fe.Param(), fe.Value()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s (got %v)", fe.Namespace(), fe.Tag(), fe.Value()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}
