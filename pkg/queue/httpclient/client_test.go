package httpclient_test

import (
	"testing"

	// Packages
	httpclient "github.com/mutablelogic/go-httpqueue/pkg/queue/httpclient"
	assert "github.com/stretchr/testify/assert"
)

func Test_Client_001(t *testing.T) {
	assert := assert.New(t)

	t.Run("MissingEndpoint", func(t *testing.T) {
		client, err := httpclient.New("")
		assert.Error(err)
		assert.Nil(client)
	})

	t.Run("Endpoint", func(t *testing.T) {
		client, err := httpclient.New("http://localhost:8080/api/v1")
		assert.NoError(err)
		assert.NotNil(client)
	})
}
