package errors

import "sort"

// Registered error codes.
const (
	CodeInvalidRoutePath = "E100"
	CodeRouteConflict    = "E101"

	CodeUnresolvedDependency  = "E110"
	CodeDuplicateKeyConflict  = "E111"
	CodeAmbiguousDependency   = "E112"
	CodeInjectionTypeMismatch = "E113"
	CodeUnknownAspect         = "E114"
	CodeConstructionFailed    = "E115"
	CodeContainerClosed       = "E116"

	CodeConfigParse      = "E120"
	CodeConfigValidation = "E121"
	CodeConfigNotFound   = "E122"

	CodeManifestParse   = "E130"
	CodeDirective       = "E131"
	CodeGenerate        = "E132"
	CodeDiscoveryFailed = "E133"
)

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Route Errors (E100-E109)
	// ============================================

	CodeInvalidRoutePath: {
		Category: CategoryRoute,
		Message:  "Invalid route path",
	},
	CodeRouteConflict: {
		Category: CategoryRoute,
		Message:  "Route handler replaced",
		Detail:   "A handler was registered for a method and path that already had one. The later registration wins.",
	},

	// ============================================
	// Container Errors (E110-E119)
	// ============================================

	CodeUnresolvedDependency: {
		Category: CategoryIoc,
		Message:  "Unresolved dependency",
	},
	CodeDuplicateKeyConflict: {
		Category: CategoryIoc,
		Message:  "Duplicate component key",
	},
	CodeAmbiguousDependency: {
		Category: CategoryIoc,
		Message:  "Ambiguous dependency",
	},
	CodeInjectionTypeMismatch: {
		Category: CategoryIoc,
		Message:  "Dependency has the wrong type",
	},
	CodeUnknownAspect: {
		Category: CategoryIoc,
		Message:  "Unknown aspect",
	},
	CodeConstructionFailed: {
		Category: CategoryIoc,
		Message:  "Component construction failed",
	},
	CodeContainerClosed: {
		Category: CategoryIoc,
		Message:  "Container has been destroyed",
	},

	// ============================================
	// Config Errors (E120-E129)
	// ============================================

	CodeConfigParse: {
		Category: CategoryConfig,
		Message:  "Invalid configuration file",
		Detail:   "The configuration file could not be parsed. Check it for syntax errors.",
	},
	CodeConfigValidation: {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
	},
	CodeConfigNotFound: {
		Category: CategoryConfig,
		Message:  "Configuration file not found",
		Detail:   "No blade.json or blade.yaml was found in the project directory.",
	},

	// ============================================
	// Discovery Errors (E130-E139)
	// ============================================

	CodeManifestParse: {
		Category: CategoryDiscovery,
		Message:  "Invalid manifest",
	},
	CodeDirective: {
		Category: CategoryDiscovery,
		Message:  "Invalid blade directive",
	},
	CodeGenerate: {
		Category: CategoryDiscovery,
		Message:  "Code generation failed",
	},
	CodeDiscoveryFailed: {
		Category: CategoryDiscovery,
		Message:  "Package discovery failed",
	},
}

// GetAllCodes returns every registered error code in ascending order.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}
