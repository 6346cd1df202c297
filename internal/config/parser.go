package config

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jqinstall/jq-install/internal/platform"
	lua "github.com/yuin/gopher-lua"
)

// Parser evaluates Lua configuration files with platform detection.
type Parser struct {
	detector platform.Detector
}

// NewParser creates a new config parser with the given platform detector.
// A nil detector leaves the platform table out of the VM.
func NewParser(detector platform.Detector) *Parser {
	return &Parser{detector: detector}
}

// ParseFile reads and evaluates a Lua configuration file.
func (p *Parser) ParseFile(ctx context.Context, path string) (*Overrides, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat config file: %w", err)
	}

	if info.Size() > MaxConfigFileSize {
		return nil, &ParseError{
			Message: "config file too large",
			Detail:  fmt.Sprintf("%d bytes, maximum is %d", info.Size(), MaxConfigFileSize),
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	return p.ParseString(ctx, string(data))
}

// ParseString evaluates Lua configuration code.
func (p *Parser) ParseString(ctx context.Context, luaCode string) (*Overrides, error) {
	L := newSandboxedVM()
	defer L.Close()

	L.SetContext(ctx)

	if p.detector != nil {
		platformInfo, err := p.detector.Detect(ctx)
		if err != nil {
			return nil, fmt.Errorf("platform detection failed: %w", err)
		}
		if err := platform.InjectPlatformTable(L, platformInfo); err != nil {
			return nil, fmt.Errorf("inject platform table: %w", err)
		}
	}

	if err := L.DoString(luaCode); err != nil {
		return nil, &ParseError{
			Message: "Lua error",
			Detail:  err.Error(),
		}
	}

	return extractOverrides(L)
}

// ParseError represents a config parsing error with friendly message.
type ParseError struct {
	Message string // User-friendly message
	Detail  string // Technical details (raw Lua error)
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Message, e.Detail)
}

// extractOverrides reads the global jq_install table.
func extractOverrides(L *lua.LState) (*Overrides, error) {
	root := L.GetGlobal("jq_install")
	if root.Type() != lua.LTTable {
		return nil, &ParseError{
			Message: "missing or invalid 'jq_install' table",
			Detail:  fmt.Sprintf("expected table, got %s", root.Type()),
		}
	}
	table := root.(*lua.LTable)

	o := &Overrides{}
	var err error

	if o.OutputDir, err = optString(table, "output_dir"); err != nil {
		return nil, err
	}
	if o.BaseURL, err = optString(table, "url"); err != nil {
		return nil, err
	}
	if o.Version, err = optString(table, "version"); err != nil {
		return nil, err
	}
	if o.SignatureBaseURL, err = optString(table, "signature_url"); err != nil {
		return nil, err
	}
	if o.KeyringPath, err = optString(table, "keyring"); err != nil {
		return nil, err
	}
	if o.SkipInstall, err = optBool(table, "skip"); err != nil {
		return nil, err
	}
	if o.Retries, err = optInt(table, "retries"); err != nil {
		return nil, err
	}
	if o.Jobs, err = optInt(table, "jobs"); err != nil {
		return nil, err
	}

	verify, err := optString(table, "verify")
	if err != nil {
		return nil, err
	}
	if verify != nil {
		mode, err := ParseVerifyMode(*verify)
		if err != nil {
			return nil, &ParseError{Message: "invalid field 'verify'", Detail: err.Error()}
		}
		o.Verify = &mode
	}

	timeout, err := optString(table, "timeout")
	if err != nil {
		return nil, err
	}
	if timeout != nil {
		d, err := time.ParseDuration(*timeout)
		if err != nil {
			return nil, &ParseError{Message: "invalid field 'timeout'", Detail: err.Error()}
		}
		o.Timeout = &d
	}

	return o, nil
}

// optString returns nil for an absent (nil) field.
func optString(table *lua.LTable, key string) (*string, error) {
	v := table.RawGetString(key)
	switch v.Type() {
	case lua.LTNil:
		return nil, nil
	case lua.LTString:
		s := v.String()
		return &s, nil
	default:
		return nil, fieldTypeError(key, "string", v)
	}
}

func optBool(table *lua.LTable, key string) (*bool, error) {
	v := table.RawGetString(key)
	switch v.Type() {
	case lua.LTNil:
		return nil, nil
	case lua.LTBool:
		b := lua.LVAsBool(v)
		return &b, nil
	default:
		return nil, fieldTypeError(key, "boolean", v)
	}
}

func optInt(table *lua.LTable, key string) (*int, error) {
	v := table.RawGetString(key)
	switch v.Type() {
	case lua.LTNil:
		return nil, nil
	case lua.LTNumber:
		f := float64(v.(lua.LNumber))
		n := int(f)
		if float64(n) != f {
			return nil, &ParseError{
				Message: fmt.Sprintf("invalid field '%s'", key),
				Detail:  fmt.Sprintf("expected integer, got %v", f),
			}
		}
		return &n, nil
	default:
		return nil, fieldTypeError(key, "number", v)
	}
}

func fieldTypeError(key, want string, got lua.LValue) error {
	return &ParseError{
		Message: fmt.Sprintf("invalid field '%s'", key),
		Detail:  fmt.Sprintf("expected %s, got %s", want, got.Type()),
	}
}
