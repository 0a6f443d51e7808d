package cluster

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := map[string]struct {
		input           string
		expectPods      int
		expectDeploys   int
		expectPodCount  int
		expectTimestamp string
	}{
		"empty object": {
			input: `{}`,
		},
		"null sequences": {
			input: `{"pods": null, "deployments": null}`,
		},
		"json snapshot": {
			input: `{
				"pods": [{"name": "a", "namespace": "ns1", "status": "Running", "creationTimestamp": "2024-01-01T00:00:00Z"}],
				"deployments": [{"name": "web", "namespace": "ns1", "replicas": 2}],
				"podCount": 1,
				"deploymentCount": 1
			}`,
			expectPods:      1,
			expectDeploys:   1,
			expectPodCount:  1,
			expectTimestamp: "2024-01-01T00:00:00Z",
		},
		"yaml snapshot with snake case timestamp": {
			input: `
pods:
  - name: a
    namespace: ns1
    status: Pending
    creation_timestamp: "2024-01-01T00:00:00Z"
podCount: 1
`,
			expectPods:      1,
			expectPodCount:  1,
			expectTimestamp: "2024-01-01T00:00:00Z",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			snap, err := Decode([]byte(tt.input))
			require.NoError(t, err)
			assert.Len(t, snap.Pods, tt.expectPods)
			assert.Len(t, snap.Deployments, tt.expectDeploys)
			assert.Equal(t, tt.expectPodCount, snap.PodCount)
			if tt.expectTimestamp != "" {
				assert.Equal(t, tt.expectTimestamp, snap.Pods[0].CreationTimestamp)
			}
		})
	}
}

func TestDecodeInvalid(t *testing.T) {
	_, err := Decode([]byte(`pods: [`))
	assert.Error(t, err)
}

func TestDeploymentKeepsExtraFields(t *testing.T) {
	input := `{"name": "web", "namespace": "prod", "ready_replicas": 1, "strategy": "RollingUpdate", "labels": {"app": "web"}}`

	var d Deployment
	require.NoError(t, json.Unmarshal([]byte(input), &d))

	assert.Equal(t, "web", d.Name)
	assert.Equal(t, "prod", d.Namespace)
	require.NotNil(t, d.ReadyReplicas)
	assert.EqualValues(t, 1, *d.ReadyReplicas)
	assert.Contains(t, d.Extra, "strategy")
	assert.Contains(t, d.Extra, "labels")
	assert.NotContains(t, d.Extra, "ready_replicas")

	out, err := json.Marshal(d)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(out, &fields))
	assert.Equal(t, "RollingUpdate", fields["strategy"])
	assert.Equal(t, "web", fields["name"])
	assert.EqualValues(t, 1, fields["readyReplicas"])
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pods:\n  - name: a\n    namespace: ns1\n    status: Running\n"), 0o600))

	snap, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, snap.Pods, 1)
	assert.Equal(t, "ns1", snap.Pods[0].Namespace)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
