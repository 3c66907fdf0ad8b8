package cloud

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// ErrNoExecutionRole is returned when the caller identity is not a role and
// no execution role was passed explicitly.
var ErrNoExecutionRole = errors.New("cannot derive an execution role from user credentials, pass one with --aws-role")

// CallerIdentityAPI is the subset of the STS client used to resolve the
// execution role.
type CallerIdentityAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// ExecutionRole derives the IAM execution role from the current caller
// identity. An assumed-role identity
// arn:aws:sts::123456789012:assumed-role/Name/session maps to
// arn:aws:iam::123456789012:role/Name. A plain user identity cannot serve
// as an execution role.
func ExecutionRole(ctx context.Context, client CallerIdentityAPI) (string, error) {
	out, err := client.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", fmt.Errorf("failed to resolve caller identity: %w", err)
	}

	arn := aws.ToString(out.Arn)
	parts := strings.Split(arn, ":")
	if len(parts) != 6 {
		return "", fmt.Errorf("unexpected caller identity ARN %q", arn)
	}
	resource := parts[5]
	if !strings.HasPrefix(resource, "assumed-role/") {
		return "", fmt.Errorf("%w (caller identity is %s)", ErrNoExecutionRole, arn)
	}
	roleParts := strings.Split(resource, "/")
	if len(roleParts) < 2 || roleParts[1] == "" {
		return "", fmt.Errorf("unexpected assumed-role ARN %q", arn)
	}
	return fmt.Sprintf("arn:aws:iam::%s:role/%s", parts[4], roleParts[1]), nil
}

// AssumeRoleCredentials returns a cached credentials provider that assumes
// the given role, optionally scoped with an external id.
func AssumeRoleCredentials(client stscreds.AssumeRoleAPIClient, roleARN, externalID string) aws.CredentialsProvider {
	provider := stscreds.NewAssumeRoleProvider(client, roleARN, func(o *stscreds.AssumeRoleOptions) {
		o.RoleSessionName = "sagify"
		if externalID != "" {
			o.ExternalID = aws.String(externalID)
		}
	})
	return aws.NewCredentialsCache(provider)
}
