// Package topology groups a flat cluster snapshot by namespace.
package topology

import "github.com/ddl-r-abdulaziz/clustermap/pkg/cluster"

// NamespaceGroup holds every pod and deployment that shares a namespace.
type NamespaceGroup struct {
	Name        string
	Pods        []cluster.Pod
	Deployments map[string]cluster.Deployment // deployment name -> Deployment

	// deployment names in insertion order, for stable iteration
	deploymentOrder []string
}

// DeploymentNames returns deployment names in the order they were first seen.
func (g *NamespaceGroup) DeploymentNames() []string {
	return append([]string(nil), g.deploymentOrder...)
}

// Topology is the namespace-grouped view of a snapshot.
type Topology struct {
	// Namespaces are in first-encounter order: all pods are scanned before deployments.
	Namespaces       []*NamespaceGroup
	TotalPods        int
	TotalDeployments int
}

// Normalize builds a Topology from a snapshot. A nil snapshot yields an empty topology.
func Normalize(s *cluster.Snapshot) *Topology {
	t := &Topology{Namespaces: make([]*NamespaceGroup, 0)}
	if s == nil {
		return t
	}

	index := make(map[string]*NamespaceGroup) // namespace -> group
	group := func(name string) *NamespaceGroup {
		if g, ok := index[name]; ok {
			return g
		}
		g := &NamespaceGroup{
			Name:        name,
			Pods:        make([]cluster.Pod, 0),
			Deployments: make(map[string]cluster.Deployment),
		}
		index[name] = g
		t.Namespaces = append(t.Namespaces, g)
		return g
	}

	for _, p := range s.Pods {
		g := group(p.Namespace)
		g.Pods = append(g.Pods, p)
	}

	for _, d := range s.Deployments {
		g := group(d.Namespace)
		if _, seen := g.Deployments[d.Name]; !seen {
			g.deploymentOrder = append(g.deploymentOrder, d.Name)
		}
		// Later records with the same name replace earlier ones.
		g.Deployments[d.Name] = d
	}

	t.TotalPods = s.PodCount
	t.TotalDeployments = s.DeploymentCount
	return t
}

// PodCount returns the number of pods across all groups.
func (t *Topology) PodCount() int {
	n := 0
	for _, g := range t.Namespaces {
		n += len(g.Pods)
	}
	return n
}
