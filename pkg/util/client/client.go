package client

import (
	"fmt"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/cli-runtime/pkg/genericclioptions"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	ctrlclient "sigs.k8s.io/controller-runtime/pkg/client"
)

const (
	// DefaultQPS is the client side rate limit towards the Kubernetes API.
	DefaultQPS float32 = 50

	// DefaultBurst is the client side burst towards the Kubernetes API.
	DefaultBurst = 100
)

// Client bundles the clients needed to find and exec into Redis Enterprise pods.
type Client struct {
	ctrlclient.Reader

	Clientset  kubernetes.Interface
	RESTConfig *rest.Config
}

// NewRESTConfig builds a REST config from the kubectl style flags.
func NewRESTConfig(flags *genericclioptions.ConfigFlags, qps float32, burst int) (*rest.Config, error) {
	cfg, err := flags.ToRESTConfig()
	if err != nil {
		return nil, fmt.Errorf("loading kubeconfig: %w", err)
	}

	cfg.QPS = qps
	cfg.Burst = burst

	return cfg, nil
}

// NewClientWithConfig creates a Client knowing only the core API group.
func NewClientWithConfig(cfg *rest.Config) (*Client, error) {
	scheme := runtime.NewScheme()
	if err := corev1.AddToScheme(scheme); err != nil {
		return nil, fmt.Errorf("registering core types: %w", err)
	}

	reader, err := ctrlclient.New(cfg, ctrlclient.Options{Scheme: scheme})
	if err != nil {
		return nil, fmt.Errorf("creating controller-runtime client: %w", err)
	}

	clientset, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating clientset: %w", err)
	}

	return &Client{
		Reader:     reader,
		Clientset:  clientset,
		RESTConfig: cfg,
	}, nil
}

// Namespace returns the namespace selected by --namespace or the current kube context.
func Namespace(flags *genericclioptions.ConfigFlags) (string, error) {
	ns, _, err := flags.ToRawKubeConfigLoader().Namespace()
	if err != nil {
		return "", fmt.Errorf("resolving namespace: %w", err)
	}

	return ns, nil
}
