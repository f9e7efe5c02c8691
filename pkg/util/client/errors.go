package client

import (
	"fmt"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
)

// IsUnrecoverableError checks if an error is unrecoverable and should not be retried.
// Returns true for errors like Forbidden, Unauthorized, Invalid, MethodNotSupported, and NotAcceptable.
func IsUnrecoverableError(err error) bool {
	return apierrors.IsForbidden(err) ||
		apierrors.IsUnauthorized(err) ||
		apierrors.IsInvalid(err) ||
		apierrors.IsMethodNotSupported(err) ||
		apierrors.IsNotAcceptable(err)
}

// WithAccessHint adds the namespace to unrecoverable errors so the operator
// knows which RoleBinding to look at. Other errors are returned unchanged.
func WithAccessHint(err error, namespace string) error {
	if err == nil || !IsUnrecoverableError(err) {
		return err
	}

	return fmt.Errorf("access to pods in namespace %q denied, check the permissions of the current kube context: %w", namespace, err)
}
