// Package finding provides the shared Severity and Vulnerability
// types. In this module pkg/riskfactors and pkg/verdict use Severity;
// Vulnerability is a base struct that other types can embed.
//
// Usage:
//
//	type SQLiVuln struct {
//	    finding.Vulnerability
//	    DBMS          string `json:"dbms,omitempty"`
//	    InjectionType string `json:"injection_type"`
//	}
package finding
