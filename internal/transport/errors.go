package transport

import "fmt"

// ConfigurationError reports key or trust material that could not be opened,
// decrypted or parsed. It is fatal at startup.
type ConfigurationError struct {
	Store string
	Path  string
	Err   error
}

func (e *ConfigurationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Store, e.Err)
	}
	return fmt.Sprintf("%s %q: %v", e.Store, e.Path, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}
