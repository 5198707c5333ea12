package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/aws/smithy-go"

	"github.com/dekkov/FaaSr-cli/internal/credentials"
	"github.com/dekkov/FaaSr-cli/internal/payload"
	"github.com/dekkov/FaaSr-cli/internal/workflow"
)

// DefaultLambdaRegion is used when a Lambda server entry has no Region.
const DefaultLambdaRegion = "us-east-1"

// LambdaInvoker is the subset of the Lambda client the backend uses.
type LambdaInvoker interface {
	Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

// LambdaClientFactory builds an invoker for region. Empty keys select the
// SDK's default credential chain.
type LambdaClientFactory func(ctx context.Context, region, accessKey, secretKey string) (LambdaInvoker, error)

// NewLambdaClient is the default LambdaClientFactory.
func NewLambdaClient(ctx context.Context, region, accessKey, secretKey string) (LambdaInvoker, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if accessKey != "" && secretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			awscreds.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return lambda.NewFromConfig(cfg), nil
}

// Lambda invokes functions asynchronously (InvocationType Event). Success
// means AWS accepted the event; execution results are only visible
// out-of-band, e.g. in CloudWatch logs.
type Lambda struct {
	creds         credentials.Source
	defaultRegion string
	newClient     LambdaClientFactory
}

// NewLambda creates the backend. A nil factory uses NewLambdaClient.
func NewLambda(creds credentials.Source, defaultRegion string, factory LambdaClientFactory) *Lambda {
	if defaultRegion == "" {
		defaultRegion = DefaultLambdaRegion
	}
	if factory == nil {
		factory = NewLambdaClient
	}
	return &Lambda{creds: creds, defaultRegion: defaultRegion, newClient: factory}
}

func (l *Lambda) Type() workflow.FaaSType { return workflow.FaaSTypeLambda }

func (l *Lambda) Mode() payload.Mode { return payload.Inject }

// Region returns the effective region for a server entry.
func (l *Lambda) Region(srv workflow.Server) string {
	if r := srv.Get(workflow.FieldRegion); r != "" {
		return r
	}
	return l.defaultRegion
}

func (l *Lambda) Trigger(ctx context.Context, target Target, body workflow.Document) (*Result, error) {
	c := l.creds.Resolve()
	region := l.Region(target.Server)

	client, err := l.newClient(ctx, region, c.LambdaAccessKey, c.LambdaSecretKey)
	if err != nil {
		return nil, &Error{Kind: KindTriggerFailed, Function: target.Function, Server: target.ServerName,
			Msg: "create Lambda client", Err: err}
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, &Error{Kind: KindTriggerFailed, Function: target.Function, Msg: "marshal payload", Err: err}
	}

	out, err := client.Invoke(ctx, &lambda.InvokeInput{
		FunctionName:   aws.String(target.Function),
		InvocationType: types.InvocationTypeEvent,
		Payload:        data,
	})
	if err != nil {
		return nil, lambdaError(target, err)
	}

	status := int(out.StatusCode)
	if out.FunctionError != nil {
		return nil, &Error{Kind: KindTriggerFailed, Function: target.Function, Server: target.ServerName,
			Msg: "function error " + aws.ToString(out.FunctionError), StatusCode: status, Body: string(out.Payload)}
	}
	if status != http.StatusAccepted {
		return nil, &Error{Kind: KindTriggerFailed, Function: target.Function, Server: target.ServerName,
			StatusCode: status, Body: string(out.Payload)}
	}
	return &Result{StatusCode: status, PayloadBytes: len(data)}, nil
}

func lambdaError(target Target, err error) *Error {
	e := &Error{Kind: KindTriggerFailed, Function: target.Function, Server: target.ServerName, Err: err}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		e.StatusCode = respErr.HTTPStatusCode()
	}

	var notFound *types.ResourceNotFoundException
	var apiErr smithy.APIError
	switch {
	case errors.As(err, &notFound):
		e.Msg = fmt.Sprintf("Lambda function %q not found", target.Function)
	case errors.As(err, &apiErr):
		e.Msg = "invoke " + apiErr.ErrorCode()
		e.Body = apiErr.ErrorMessage()
	default:
		e.Msg = "invoke"
	}
	return e
}
