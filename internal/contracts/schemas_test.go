package contracts

import (
	"testing"

	"outreach-service/internal/constants"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyFromPath(t *testing.T) {
	assert.Equal(t, "IngestionRunRequestEvent/1.0.0", keyFromPath("schemas/events/ingestion-run-request/v1.json"))
	assert.Equal(t, "", keyFromPath("schemas/events/broken.json"))
}

func TestValidateEvent_IngestionRunRequest(t *testing.T) {
	require.NoError(t, loadSchemas())

	valid := []byte(`{"request_id":"7b6c3f0e-1f5a-4d0e-9a51-3c1c5bbd1f10","criteria":{"city":"Milano","max_price":400000,"max_pages":3}}`)
	assert.NoError(t, ValidateEvent(constants.EventIngestionRunRequest, constants.EventVersionV1, valid))

	tests := map[string]string{
		"missing criteria": `{}`,
		"empty city":       `{"criteria":{"city":""}}`,
		"negative price":   `{"criteria":{"city":"Roma","max_price":-1}}`,
		"unknown field":    `{"criteria":{"city":"Roma"},"force":true}`,
		"bad request id":   `{"request_id":"nope","criteria":{"city":"Roma"}}`,
		"too many pages":   `{"criteria":{"city":"Roma","max_pages":500}}`,
		"not even json":    `{"criteria":`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, ValidateEvent(constants.EventIngestionRunRequest, constants.EventVersionV1, []byte(body)))
		})
	}
}

func TestValidateEvent_UnknownSchema(t *testing.T) {
	err := ValidateEvent("NopeEvent", "9.0.0", []byte(`{}`))
	assert.ErrorContains(t, err, "not found")
}
