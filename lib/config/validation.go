package config

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	ipsetNameRegexp = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
	chainNameRegexp = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)
)

// ValidationError represents a single validation error with context
type ValidationError struct {
	ItemName  string // For sources/rules: the name of the item
	FieldPath string // Dot-notation field path (e.g. "general.ipset_name")
	Message   string // Human-readable error message
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("validation failed with %d error(s):\n", len(ve)))
	for i, err := range ve {
		if err.ItemName != "" {
			sb.WriteString(fmt.Sprintf("  %d. [%s] %s: %s\n", i+1, err.ItemName, err.FieldPath, err.Message))
		} else {
			sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.FieldPath, err.Message))
		}
	}
	return sb.String()
}

var validate *validator.Validate

func init() {
	validate = validator.New()

	if err := validate.RegisterValidation("ipset_name", func(fl validator.FieldLevel) bool {
		return ipsetNameRegexp.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	if err := validate.RegisterValidation("chain_name", func(fl validator.FieldLevel) bool {
		return chainNameRegexp.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
}

// getValidationMessage returns a human-readable message for a validation error
func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "field is required"
	case "min":
		return fmt.Sprintf("must be >= %s", e.Param())
	case "max":
		return fmt.Sprintf("must be <= %s", e.Param())
	case "url":
		return "must be a valid URL"
	case "fqdn":
		return "must be a valid domain name"
	case "hostname_port":
		return "must be in format 'host:port'"
	case "ipset_name":
		return "must consist only of lowercase letters, numbers, and underscores [a-z0-9_]"
	case "chain_name":
		return "must be a valid iptables chain name [A-Za-z0-9_-]"
	default:
		return fmt.Sprintf("validation failed: %s", e.Tag())
	}
}

func convertValidatorErrors(err error, section string, itemName string) ValidationErrors {
	var out ValidationErrors

	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, e := range verrs {
			// Strip the struct name from the namespace, keep the field path.
			path := e.Namespace()
			if idx := strings.Index(path, "."); idx >= 0 {
				path = path[idx+1:]
			}
			out = append(out, ValidationError{
				ItemName:  itemName,
				FieldPath: section + "." + strings.ToLower(path),
				Message:   getValidationMessage(e),
			})
		}
		return out
	}

	out = append(out, ValidationError{
		ItemName:  itemName,
		FieldPath: section,
		Message:   err.Error(),
	})
	return out
}

// ValidateConfig validates the entire configuration and returns all
// validation errors at once.
func (c *Config) ValidateConfig() error {
	var validationErrors ValidationErrors

	if c.General == nil {
		validationErrors = append(validationErrors, ValidationError{
			FieldPath: "general",
			Message:   "configuration must contain 'general' section",
		})
		return validationErrors
	}

	if err := validate.Struct(c.General); err != nil {
		validationErrors = append(validationErrors, convertValidatorErrors(err, "general", "")...)
	}

	if len(c.Sources) == 0 {
		validationErrors = append(validationErrors, ValidationError{
			FieldPath: "source",
			Message:   "configuration must contain at least one list source",
		})
	} else {
		seenNames := make(map[string]bool)
		for _, src := range c.Sources {
			if err := validate.Struct(src); err != nil {
				validationErrors = append(validationErrors, convertValidatorErrors(err, "source", src.SourceName)...)
			}
			if src.SourceName != "" && seenNames[src.SourceName] {
				validationErrors = append(validationErrors, ValidationError{
					ItemName:  src.SourceName,
					FieldPath: "source.name",
					Message:   "duplicate source name",
				})
			}
			seenNames[src.SourceName] = true
		}
	}

	for i, rule := range c.ExtraRules {
		if err := validate.Struct(rule); err != nil {
			validationErrors = append(validationErrors, convertValidatorErrors(err, fmt.Sprintf("extra_rule[%d]", i), "")...)
		}
	}

	if len(validationErrors) > 0 {
		return validationErrors
	}

	return nil
}
