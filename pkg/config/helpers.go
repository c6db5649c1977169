package config

import (
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Overrides are command line values applied on top of the wrapper file.
// Boolean flags can only switch behavior on.
type Overrides struct {
	DistributionURL   string
	ChecksumURL       string
	ChecksumAlgorithm string
	DistributionBase  string
	AlwaysDownload    bool
	AlwaysUnpack      bool
	VerifyDownload    bool
}

// Apply returns a copy of w with the overrides applied.
func (o Overrides) Apply(w *Wrapper) *Wrapper {
	out := Wrapper{}
	if w != nil {
		out = *w
	}
	if o.DistributionURL != "" {
		out.DistributionURL = o.DistributionURL
	}
	if o.ChecksumURL != "" {
		out.ChecksumURL = o.ChecksumURL
	}
	if o.ChecksumAlgorithm != "" {
		out.ChecksumAlgorithm = o.ChecksumAlgorithm
	}
	if o.DistributionBase != "" {
		out.DistributionBase = o.DistributionBase
	}
	out.AlwaysDownload = out.AlwaysDownload || o.AlwaysDownload
	out.AlwaysUnpack = out.AlwaysUnpack || o.AlwaysUnpack
	out.VerifyDownload = out.VerifyDownload || o.VerifyDownload
	return &out
}

// ToMap flattens the loaded configuration for display, keyed by YAML name.
// Secrets are masked.
func (l *Loaded) ToMap() map[string]string {
	result := make(map[string]string)
	result["userHome"] = l.UserHome
	result["projectDir"] = l.ProjectDir
	result["wrapperFile"] = l.WrapperPath
	if l.Wrapper != nil {
		flatten(result, reflect.ValueOf(*l.Wrapper))
	}
	flatten(result, reflect.ValueOf(l.Settings))
	for _, key := range []string{"distributionUrl", "checksumUrl"} {
		if u, err := url.Parse(result[key]); err == nil && result[key] != "" {
			result[key] = u.Redacted()
		}
	}
	result["auth"] = describeAuth(l.Settings.Auth)
	return result
}

// SortedKeys returns the keys of m in order.
func SortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func flatten(result map[string]string, v reflect.Value) {
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		yamlTag := field.Tag.Get("yaml")
		if yamlTag == "" || yamlTag == "-" {
			continue
		}
		// Handle yaml tags with options (e.g., "log_level,omitempty")
		yamlKey := strings.Split(yamlTag, ",")[0]

		fieldValue := v.Field(i)
		switch fieldValue.Kind() {
		case reflect.Bool:
			result[yamlKey] = strconv.FormatBool(fieldValue.Bool())
		case reflect.String:
			result[yamlKey] = fieldValue.String()
		case reflect.Int64:
			if d, ok := fieldValue.Interface().(time.Duration); ok {
				result[yamlKey] = d.String()
			} else {
				result[yamlKey] = strconv.FormatInt(fieldValue.Int(), 10)
			}
		case reflect.Pointer:
			// nested sections are described separately
		default:
			result[yamlKey] = fmt.Sprintf("%v", fieldValue.Interface())
		}
	}
}

func describeAuth(a *AuthConfig) string {
	switch {
	case a == nil:
		return "none"
	case a.BasicAuth != nil:
		return fmt.Sprintf("basic (user %s, password ****)", a.BasicAuth.Username)
	case a.HeaderAuth != nil:
		names := make([]string, 0, len(a.HeaderAuth.Headers))
		for k := range a.HeaderAuth.Headers {
			names = append(names, k)
		}
		sort.Strings(names)
		return "header (" + strings.Join(names, ", ") + ")"
	case a.BearerAuth != nil:
		return "bearer (****)"
	default:
		return "none"
	}
}
