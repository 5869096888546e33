package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSide(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		in      string
		want    Side
		wantErr bool
	}{
		{in: "client", want: Client},
		{in: "SERVER", want: Server},
		{in: " client ", want: Client},
		{in: "joined", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseSide(tc.in)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSide_ArtifactNames(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "client", Client.Artifact())
	assert.Equal(t, "server_mappings", Server.MappingsArtifact())
	assert.False(t, Side("both").Valid())
}
