package llm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func enterpriseEnv() map[string]string {
	return map[string]string{
		EnvAzureAPIKey:     "az-key",
		EnvAzureEndpoint:   "https://corp.openai.azure.com",
		EnvAzureDeployment: "gpt-4o",
		EnvAzureAPIVersion: "2024-02-01",
	}
}

func genericEnv() map[string]string {
	return map[string]string{
		EnvOpenAIAPIKey:    "sk-test",
		EnvOpenAIModelName: "gpt-4",
	}
}

func TestSelectProviderPrefersEnterprise(t *testing.T) {
	env := enterpriseEnv()
	// Generic also fully configured; enterprise still wins.
	for k, v := range genericEnv() {
		env[k] = v
	}

	sel, err := SelectProvider(env)
	require.NoError(t, err)
	assert.Equal(t, KindEnterprise, sel.Kind)
	assert.Equal(t, "https://corp.openai.azure.com", sel.Endpoint)
	assert.Equal(t, "gpt-4o", sel.Deployment)
	assert.Equal(t, "2024-02-01", sel.APIVersion)
	assert.Equal(t, "az-key", sel.APIKey)
}

func TestSelectProviderEndpointSynonym(t *testing.T) {
	env := enterpriseEnv()
	delete(env, EnvAzureEndpoint)
	env[EnvAzureAPIBase] = "https://base.openai.azure.com/"

	sel, err := SelectProvider(env)
	require.NoError(t, err)
	assert.Equal(t, KindEnterprise, sel.Kind)
	assert.Equal(t, "https://base.openai.azure.com/", sel.Endpoint)
}

func TestSelectProviderGenericOnly(t *testing.T) {
	sel, err := SelectProvider(genericEnv())
	require.NoError(t, err)
	assert.Equal(t, KindGeneric, sel.Kind)
	assert.Equal(t, "gpt-4", sel.Model)
	assert.Equal(t, "sk-test", sel.APIKey)
}

func TestSelectProviderIncompleteEnterpriseFallsThrough(t *testing.T) {
	env := genericEnv()
	env[EnvAzureAPIKey] = "az-key" // enterprise partially configured

	sel, err := SelectProvider(env)
	require.NoError(t, err)
	assert.Equal(t, KindGeneric, sel.Kind)
}

func TestSelectProviderNothingConfigured(t *testing.T) {
	_, err := SelectProvider(map[string]string{})
	require.Error(t, err)

	var missing *ConfigMissingError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []string{
		EnvAzureAPIKey,
		EnvAzureDeployment,
		EnvAzureAPIVersion,
		EnvAzureEndpoint + " or " + EnvAzureAPIBase,
	}, missing.Enterprise)
	assert.Equal(t, []string{EnvOpenAIAPIKey, EnvOpenAIModelName}, missing.Generic)
}

func TestSelectProviderMissingListIsExact(t *testing.T) {
	env := map[string]string{
		EnvAzureAPIKey:     "az-key",
		EnvAzureEndpoint:   "https://corp.openai.azure.com",
		EnvOpenAIModelName: "gpt-4",
	}
	_, err := SelectProvider(env)
	require.Error(t, err)

	var missing *ConfigMissingError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []string{EnvAzureDeployment, EnvAzureAPIVersion}, missing.Enterprise)
	assert.Equal(t, []string{EnvOpenAIAPIKey}, missing.Generic)
}

func TestSelectProviderEmptyValuesCountAsMissing(t *testing.T) {
	env := genericEnv()
	env[EnvOpenAIAPIKey] = "   "

	_, err := SelectProvider(env)
	var missing *ConfigMissingError
	require.True(t, errors.As(err, &missing))
	assert.Contains(t, missing.Generic, EnvOpenAIAPIKey)
	assert.NotContains(t, missing.Generic, EnvOpenAIModelName)
}

func TestSelectProviderIdempotent(t *testing.T) {
	env := map[string]string{EnvAzureAPIKey: "k"}

	_, err1 := SelectProvider(env)
	_, err2 := SelectProvider(env)
	require.Error(t, err1)
	require.Error(t, err2)
	assert.Equal(t, err1.Error(), err2.Error())

	sel1, err := SelectProvider(genericEnv())
	require.NoError(t, err)
	sel2, err := SelectProvider(genericEnv())
	require.NoError(t, err)
	assert.Equal(t, sel1, sel2)
}

func TestNewConstructsClientForEachKind(t *testing.T) {
	ent, err := SelectProvider(enterpriseEnv())
	require.NoError(t, err)
	assert.IsType(t, &azureProvider{}, New(ent, DefaultOptions()))

	gen, err := SelectProvider(genericEnv())
	require.NoError(t, err)
	assert.IsType(t, &openaiProvider{}, New(gen, Options{}))
}

func TestStripFences(t *testing.T) {
	in := "```json\n{\"a\": 1}\n```"
	assert.Equal(t, "{\"a\": 1}", StripFences(in))
	assert.Equal(t, "plain", StripFences("plain"))
}
