package graph

import (
	"encoding/json"
	"testing"
)

func TestKindRadius(t *testing.T) {
	tests := map[string]struct {
		kind     Kind
		expected float64
	}{
		"cluster":    {kind: KindCluster, expected: 40},
		"namespace":  {kind: KindNamespace, expected: 30},
		"deployment": {kind: KindDeployment, expected: 25},
		"pod":        {kind: KindPod, expected: 20},
		"unknown":    {kind: Kind(42), expected: 15},
		"negative":   {kind: Kind(-1), expected: 15},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if got := tt.kind.Radius(); got != tt.expected {
				t.Errorf("expected radius %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestKindTextRoundTrip(t *testing.T) {
	for _, k := range []Kind{KindCluster, KindNamespace, KindDeployment, KindPod} {
		text, err := k.MarshalText()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var got Kind
		if err := got.UnmarshalText(text); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != k {
			t.Errorf("expected %v, got %v", k, got)
		}
	}

	var k Kind
	if err := k.UnmarshalText([]byte("service")); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestNodeJSONUsesKindName(t *testing.T) {
	data, err := json.Marshal(Node{ID: "pod-ns/a", Kind: KindPod})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fields["kind"] != "pod" {
		t.Errorf("expected kind %q, got %v", "pod", fields["kind"])
	}
}

func TestIDs(t *testing.T) {
	tests := map[string]struct {
		got      string
		expected string
	}{
		"namespace": {got: NamespaceID("kube-system"), expected: "ns-kube-system"},
		"pod":       {got: PodID("default", "nginx-1"), expected: "pod-default/nginx-1"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, tt.got)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := map[string]struct {
		input    string
		max      int
		expected string
	}{
		"short":          {input: "nginx", max: 10, expected: "nginx"},
		"exact":          {input: "0123456789", max: 10, expected: "0123456789"},
		"long":           {input: "nginx-deployment-abc", max: 12, expected: "nginx-deploy..."},
		"multibyte runes": {input: "ünïcödé-pöd-näme", max: 4, expected: "ünïc..."},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if got := Truncate(tt.input, tt.max); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestNodeClass(t *testing.T) {
	tests := map[string]struct {
		kind      Kind
		modifiers []string
		expected  string
	}{
		"namespace":          {kind: KindNamespace, expected: "cluster-node namespace"},
		"pod with status":    {kind: KindPod, modifiers: []string{"Running"}, expected: "cluster-node pod running"},
		"unknown status":     {kind: KindPod, modifiers: []string{"CrashLoopBackOff"}, expected: "cluster-node pod crashloopbackoff"},
		"empty status":       {kind: KindPod, modifiers: []string{""}, expected: "cluster-node pod"},
		"cluster":            {kind: KindCluster, expected: "cluster-node cluster"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if got := NodeClass(tt.kind, tt.modifiers...); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}
