// Package credentials implements persistence for the MLOps API key.
//
// The FileRepository stores the key as YAML inside the fedml home folder and
// Store resolves the effective key, letting the MLOPS_API_KEY environment
// variable take precedence over the stored one.
package credentials
