package rex

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/remotecommand"
	utilexec "k8s.io/client-go/util/exec"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// DefaultPodSelector matches the Redis Enterprise node pods created by the operator.
const DefaultPodSelector = "redis.io/role=node"

// KubernetesCommander runs commands inside the Redis Enterprise node pods.
type KubernetesCommander struct {
	Clientset kubernetes.Interface
	Config    *rest.Config
	Namespace string
	// Container is optional; the pod's default container is used when empty.
	Container string
}

func (k *KubernetesCommander) Run(ctx context.Context, pod string, cmd string) (string, error) {
	req := k.Clientset.CoreV1().RESTClient().
		Post().
		Resource("pods").
		Name(pod).
		Namespace(k.Namespace).
		SubResource("exec").
		VersionedParams(&corev1.PodExecOptions{
			Container: k.Container,
			Command:   []string{"sh", "-c", cmd},
			Stdout:    true,
			Stderr:    true,
		}, scheme.ParameterCodec)

	executor, err := remotecommand.NewSPDYExecutor(k.Config, "POST", req.URL())
	if err != nil {
		return "", fmt.Errorf("creating executor for pod %s/%s: %w", k.Namespace, pod, err)
	}

	var stdout, stderr bytes.Buffer

	err = executor.StreamWithContext(ctx, remotecommand.StreamOptions{
		Stdout: &stdout,
		Stderr: &stderr,
	})
	if err != nil {
		var exitErr utilexec.ExitError
		if errors.As(err, &exitErr) {
			return "", &ExecError{
				Target:   pod,
				Command:  cmd,
				ExitCode: exitErr.ExitStatus(),
				Stderr:   strings.TrimSpace(stderr.String()),
				Err:      err,
			}
		}

		return "", fmt.Errorf("executing %q in pod %s/%s: %w", cmd, k.Namespace, pod, err)
	}

	return strings.TrimSpace(stdout.String()), nil
}

// DiscoverPods returns the names of the running pods matching selector, sorted by name.
func DiscoverPods(ctx context.Context, c client.Reader, namespace string, selector string) ([]string, error) {
	if selector == "" {
		selector = DefaultPodSelector
	}

	sel, err := labels.Parse(selector)
	if err != nil {
		return nil, fmt.Errorf("parsing pod selector %q: %w", selector, err)
	}

	var pods corev1.PodList
	if err := c.List(ctx, &pods, client.InNamespace(namespace), client.MatchingLabelsSelector{Selector: sel}); err != nil {
		return nil, fmt.Errorf("listing pods in %s: %w", namespace, err)
	}

	names := make([]string, 0, len(pods.Items))
	for _, p := range pods.Items {
		if p.Status.Phase == corev1.PodRunning {
			names = append(names, p.Name)
		}
	}

	sort.Strings(names)

	return names, nil
}
