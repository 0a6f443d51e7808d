// Package cluster defines the point-in-time cluster snapshot consumed by the diagram engine.
package cluster

import (
	"encoding/json"
	"fmt"
	"os"

	"sigs.k8s.io/yaml"
)

// Pod is a pod record as reported by the cluster data source.
type Pod struct {
	Name      string `json:"name"`
	Namespace string `json:"namespace"`
	// Status is an open set (Running, Pending, Failed, Succeeded, Unknown, ...).
	Status            string `json:"status"`
	CreationTimestamp string `json:"creationTimestamp,omitempty"`
}

// UnmarshalJSON accepts both camelCase and snake_case timestamps.
func (p *Pod) UnmarshalJSON(data []byte) error {
	type plain Pod
	var aux struct {
		plain
		SnakeTimestamp string `json:"creation_timestamp"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*p = Pod(aux.plain)
	if p.CreationTimestamp == "" {
		p.CreationTimestamp = aux.SnakeTimestamp
	}
	return nil
}

// Deployment is a deployment record. Only Name and Namespace matter to the
// engine; everything else is carried along for display.
type Deployment struct {
	Name              string `json:"name"`
	Namespace         string `json:"namespace"`
	Replicas          *int32 `json:"replicas,omitempty"`
	ReadyReplicas     *int32 `json:"readyReplicas,omitempty"`
	CreationTimestamp string `json:"creationTimestamp,omitempty"`

	// Extra holds fields the engine does not know about.
	Extra map[string]json.RawMessage `json:"-"`
}

var deploymentKnownFields = map[string]bool{
	"name":               true,
	"namespace":          true,
	"replicas":           true,
	"readyReplicas":      true,
	"ready_replicas":     true,
	"creationTimestamp":  true,
	"creation_timestamp": true,
}

// UnmarshalJSON decodes the known fields and keeps the rest in Extra.
func (d *Deployment) UnmarshalJSON(data []byte) error {
	type plain Deployment
	var aux struct {
		plain
		SnakeReady     *int32 `json:"ready_replicas"`
		SnakeTimestamp string `json:"creation_timestamp"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*d = Deployment(aux.plain)
	if d.ReadyReplicas == nil {
		d.ReadyReplicas = aux.SnakeReady
	}
	if d.CreationTimestamp == "" {
		d.CreationTimestamp = aux.SnakeTimestamp
	}
	for k, v := range raw {
		if deploymentKnownFields[k] {
			continue
		}
		if d.Extra == nil {
			d.Extra = make(map[string]json.RawMessage)
		}
		d.Extra[k] = v
	}
	return nil
}

// MarshalJSON writes the known fields followed by Extra.
func (d Deployment) MarshalJSON() ([]byte, error) {
	type plain Deployment
	known, err := json.Marshal(plain(d))
	if err != nil {
		return nil, err
	}
	if len(d.Extra) == 0 {
		return known, nil
	}
	merged := make(map[string]json.RawMessage, len(d.Extra)+5)
	for k, v := range d.Extra {
		merged[k] = v
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(known, &fields); err != nil {
		return nil, err
	}
	for k, v := range fields {
		merged[k] = v
	}
	return json.Marshal(merged)
}

// Snapshot is the flat resource listing. Any field may be absent.
type Snapshot struct {
	Pods            []Pod        `json:"pods"`
	Deployments     []Deployment `json:"deployments"`
	PodCount        int          `json:"podCount"`
	DeploymentCount int          `json:"deploymentCount"`

	// Set by the data source, not used for layout.
	FetchTimestamp float64 `json:"fetchTimestamp,omitempty"`
	Source         string  `json:"source,omitempty"`
	CacheAge       float64 `json:"cacheAge,omitempty"`
}

// Decode parses a snapshot from JSON or YAML.
func Decode(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &s, nil
}

// LoadFile reads and decodes a snapshot file.
func LoadFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot file: %w", err)
	}
	return Decode(data)
}
