package tracing

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestSafeAttributesDropsCredentials(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("http.route", "/admin/reports/trend"),
		attribute.String("Authorization", "Bearer abc"),
		attribute.String("business_id", strings.Repeat("x", 400)),
	)

	require.Len(t, attrs, 2)
	assert.Equal(t, attribute.Key("http.route"), attrs[0].Key)
	assert.Len(t, attrs[1].Value.AsString(), maxAttributeLength)
}

func TestSafeError(t *testing.T) {
	assert.Nil(t, SafeError(nil))
	assert.Nil(t, SafeError(errors.New("  ")))

	err := SafeError(errors.New(strings.Repeat("e", 300)))
	require.Error(t, err)
	assert.Len(t, err.Error(), maxAttributeLength)
}
