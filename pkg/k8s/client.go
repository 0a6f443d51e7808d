// Package k8s provides Kubernetes client functionality for fetching cluster snapshots.
package k8s

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/ddl-r-abdulaziz/clustermap/pkg/cluster"
)

// StatusUnknown is reported for pods without a phase.
const StatusUnknown = "Unknown"

// Client wraps the Kubernetes clientset.
type Client struct {
	clientset kubernetes.Interface
	now       func() time.Time
}

// NewClient creates a new Kubernetes client using the provided kubeconfig path.
// If kubeconfig is empty, it attempts to use in-cluster config.
func NewClient(kubeconfig string) (*Client, error) {
	var config *rest.Config
	var err error

	if kubeconfig == "" {
		config, err = rest.InClusterConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to create in-cluster config: %w", err)
		}
	} else {
		config, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
		if err != nil {
			return nil, fmt.Errorf("failed to build config from kubeconfig: %w", err)
		}
	}

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create clientset: %w", err)
	}

	return NewClientWithInterface(clientset), nil
}

// NewClientWithInterface creates a new Client with a provided kubernetes.Interface.
// This is useful for testing.
func NewClientWithInterface(clientset kubernetes.Interface) *Client {
	return &Client{clientset: clientset, now: time.Now}
}

// ParseNamespaces parses a comma-separated list of namespaces.
func ParseNamespaces(namespaces string) []string {
	parts := strings.Split(namespaces, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// GetSnapshot lists pods and deployments in the given namespaces, or in all
// namespaces when none are given.
func (c *Client) GetSnapshot(ctx context.Context, namespaces []string) (*cluster.Snapshot, error) {
	if len(namespaces) == 0 {
		namespaces = []string{metav1.NamespaceAll}
	}

	var pods []cluster.Pod
	var deployments []cluster.Deployment

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		pods, err = c.getPods(ctx, namespaces)
		return err
	})
	g.Go(func() error {
		var err error
		deployments, err = c.getDeployments(ctx, namespaces)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &cluster.Snapshot{
		Pods:            pods,
		Deployments:     deployments,
		PodCount:        len(pods),
		DeploymentCount: len(deployments),
		FetchTimestamp:  float64(c.now().UnixMilli()) / 1000,
	}, nil
}

func (c *Client) getPods(ctx context.Context, namespaces []string) ([]cluster.Pod, error) {
	pods := make([]cluster.Pod, 0)
	for _, ns := range namespaces {
		list, err := c.clientset.CoreV1().Pods(ns).List(ctx, metav1.ListOptions{})
		if err != nil {
			return nil, fmt.Errorf("failed to list pods in namespace %q: %w", ns, err)
		}
		for _, p := range list.Items {
			pods = append(pods, podToRecord(p))
		}
	}
	return pods, nil
}

func (c *Client) getDeployments(ctx context.Context, namespaces []string) ([]cluster.Deployment, error) {
	deployments := make([]cluster.Deployment, 0)
	for _, ns := range namespaces {
		list, err := c.clientset.AppsV1().Deployments(ns).List(ctx, metav1.ListOptions{})
		if err != nil {
			return nil, fmt.Errorf("failed to list deployments in namespace %q: %w", ns, err)
		}
		for _, d := range list.Items {
			deployments = append(deployments, deploymentToRecord(d))
		}
	}
	return deployments, nil
}

func podToRecord(p corev1.Pod) cluster.Pod {
	status := string(p.Status.Phase)
	if status == "" {
		status = StatusUnknown
	}
	return cluster.Pod{
		Name:              p.Name,
		Namespace:         p.Namespace,
		Status:            status,
		CreationTimestamp: formatTime(p.CreationTimestamp),
	}
}

func deploymentToRecord(d appsv1.Deployment) cluster.Deployment {
	ready := d.Status.ReadyReplicas
	return cluster.Deployment{
		Name:              d.Name,
		Namespace:         d.Namespace,
		Replicas:          d.Spec.Replicas,
		ReadyReplicas:     &ready,
		CreationTimestamp: formatTime(d.CreationTimestamp),
	}
}

func formatTime(t metav1.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
