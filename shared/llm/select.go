package llm

import (
	"fmt"
	"strings"
)

// Configuration keys for the two provider profiles. The enterprise endpoint
// accepts two key names for compatibility with older deployments.
const (
	EnvAzureAPIKey     = "AZURE_OPENAI_API_KEY"
	EnvAzureEndpoint   = "AZURE_OPENAI_ENDPOINT"
	EnvAzureAPIBase    = "AZURE_OPENAI_API_BASE"
	EnvAzureDeployment = "AZURE_OPENAI_DEPLOYMENT_NAME"
	EnvAzureAPIVersion = "AZURE_OPENAI_API_VERSION"

	EnvOpenAIAPIKey    = "OPENAI_API_KEY"
	EnvOpenAIModelName = "OPENAI_MODEL_NAME"
)

// Kind tags which profile a selection resolved to.
type Kind string

const (
	KindEnterprise Kind = "enterprise"
	KindGeneric    Kind = "generic"
)

// Selection carries the fields needed to construct a client for the chosen
// profile. Enterprise selections fill Endpoint/Deployment/APIVersion;
// generic selections fill Model.
type Selection struct {
	Kind       Kind
	APIKey     string
	Endpoint   string
	Deployment string
	APIVersion string
	Model      string
}

// ConfigMissingError reports, per profile, exactly which configuration keys
// were absent or empty. It is a terminal outcome the caller branches on, not
// a transient failure.
type ConfigMissingError struct {
	Enterprise []string
	Generic    []string
}

func (e *ConfigMissingError) Error() string {
	return fmt.Sprintf(
		"no LLM provider configured — enterprise profile missing: %s; generic profile missing: %s",
		strings.Join(e.Enterprise, ", "), strings.Join(e.Generic, ", "))
}

// SelectProvider decides which backend profile to use, first match wins:
// the enterprise profile is preferred whenever it is complete, reflecting
// the policy that the organizationally sanctioned endpoint takes precedence.
// There is deliberately no runtime override; selection changes only by
// withholding credentials.
//
// Pure function over the mapping: no network calls, no process state.
func SelectProvider(env map[string]string) (Selection, error) {
	get := func(k string) string { return strings.TrimSpace(env[k]) }

	var entMissing []string
	for _, k := range []string{EnvAzureAPIKey, EnvAzureDeployment, EnvAzureAPIVersion} {
		if get(k) == "" {
			entMissing = append(entMissing, k)
		}
	}
	endpoint := get(EnvAzureEndpoint)
	if endpoint == "" {
		endpoint = get(EnvAzureAPIBase)
	}
	if endpoint == "" {
		entMissing = append(entMissing, EnvAzureEndpoint+" or "+EnvAzureAPIBase)
	}
	if len(entMissing) == 0 {
		return Selection{
			Kind:       KindEnterprise,
			APIKey:     get(EnvAzureAPIKey),
			Endpoint:   endpoint,
			Deployment: get(EnvAzureDeployment),
			APIVersion: get(EnvAzureAPIVersion),
		}, nil
	}

	var genMissing []string
	for _, k := range []string{EnvOpenAIAPIKey, EnvOpenAIModelName} {
		if get(k) == "" {
			genMissing = append(genMissing, k)
		}
	}
	if len(genMissing) == 0 {
		return Selection{
			Kind:   KindGeneric,
			APIKey: get(EnvOpenAIAPIKey),
			Model:  get(EnvOpenAIModelName),
		}, nil
	}

	return Selection{}, &ConfigMissingError{Enterprise: entMissing, Generic: genMissing}
}
