package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"

	"github.com/dekkov/FaaSr-cli/internal/credentials"
	"github.com/dekkov/FaaSr-cli/internal/payload"
	"github.com/dekkov/FaaSr-cli/internal/workflow"
)

type fakeInvoker struct {
	input *lambda.InvokeInput
	out   *lambda.InvokeOutput
	err   error
}

func (f *fakeInvoker) Invoke(_ context.Context, in *lambda.InvokeInput, _ ...func(*lambda.Options)) (*lambda.InvokeOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return f.out, nil
}

type factoryCall struct {
	region, accessKey, secretKey string
}

func fakeFactory(inv *fakeInvoker, calls *[]factoryCall) LambdaClientFactory {
	return func(_ context.Context, region, ak, sk string) (LambdaInvoker, error) {
		*calls = append(*calls, factoryCall{region, ak, sk})
		return inv, nil
	}
}

func lambdaDoc(t *testing.T, region string) workflow.Document {
	regionField := ""
	if region != "" {
		regionField = `, "Region": "` + region + `"`
	}
	return parseDoc(t, `{
  "FunctionInvoke": "f1",
  "FunctionList": {"f1": {"FaaSServer": "aws"}},
  "ComputeServers": {"aws": {"FaaSType": "Lambda", "AccessKey": "file-a", "SecretKey": "file-s"`+regionField+`}},
  "DataStores": {"My_Minio_Bucket": {"AccessKey": "x", "SecretKey": "y"}}
}`)
}

func TestDispatch_LambdaEventInvocation(t *testing.T) {
	inv := &fakeInvoker{out: &lambda.InvokeOutput{StatusCode: 202}}
	var calls []factoryCall
	d := New(payload.NewBuilder(testCreds, ""),
		WithBackend(NewLambda(testCreds, "", fakeFactory(inv, &calls))),
	)

	res, err := d.Dispatch(context.Background(), lambdaDoc(t, ""), "f1")
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if res.StatusCode != 202 {
		t.Fatalf("StatusCode = %d", res.StatusCode)
	}
	if len(calls) != 1 {
		t.Fatalf("expected one client, got %d", len(calls))
	}
	if calls[0] != (factoryCall{"us-east-1", "AKIALIVE", "lambda-s"}) {
		t.Fatalf("client built with %+v", calls[0])
	}
	if aws.ToString(inv.input.FunctionName) != "f1" {
		t.Fatalf("FunctionName = %q", aws.ToString(inv.input.FunctionName))
	}
	if inv.input.InvocationType != types.InvocationTypeEvent {
		t.Fatalf("InvocationType = %q, want Event", inv.input.InvocationType)
	}

	sent, err := workflow.Parse(inv.input.Payload, workflow.FormatJSON)
	if err != nil {
		t.Fatalf("payload: %v", err)
	}
	srv, _ := sent.Server("aws")
	if srv.Get(workflow.FieldAccessKey) != "AKIALIVE" || srv.Get(workflow.FieldSecretKey) != "lambda-s" {
		t.Fatalf("expected injected Lambda keys, got %v", srv)
	}
}

func TestDispatch_LambdaRegionFromServer(t *testing.T) {
	inv := &fakeInvoker{out: &lambda.InvokeOutput{StatusCode: 202}}
	var calls []factoryCall
	d := New(payload.NewBuilder(credentials.Static{}, ""),
		WithBackend(NewLambda(credentials.Static{}, "", fakeFactory(inv, &calls))),
	)
	if _, err := d.Dispatch(context.Background(), lambdaDoc(t, "eu-central-1"), "f1"); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if calls[0] != (factoryCall{"eu-central-1", "", ""}) {
		t.Fatalf("client built with %+v", calls[0])
	}
	sent, _ := workflow.Parse(inv.input.Payload, workflow.FormatJSON)
	srv, _ := sent.Server("aws")
	if srv.Get(workflow.FieldAccessKey) != "file-a" {
		t.Fatalf("absent credential should leave AccessKey, got %q", srv.Get(workflow.FieldAccessKey))
	}
}

func TestDispatch_LambdaFailures(t *testing.T) {
	tests := []struct {
		name string
		inv  *fakeInvoker
		want int
	}{
		{"not found", &fakeInvoker{err: &types.ResourceNotFoundException{Message: aws.String("Function not found")}}, 0},
		{"function error", &fakeInvoker{out: &lambda.InvokeOutput{StatusCode: 202, FunctionError: aws.String("Unhandled")}}, 202},
		{"unexpected status", &fakeInvoker{out: &lambda.InvokeOutput{StatusCode: 200}}, 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls []factoryCall
			d := New(payload.NewBuilder(testCreds, ""),
				WithBackend(NewLambda(testCreds, "", fakeFactory(tt.inv, &calls))),
			)
			_, err := d.Dispatch(context.Background(), lambdaDoc(t, ""), "f1")
			var de *Error
			if !errors.As(err, &de) || de.Kind != KindTriggerFailed {
				t.Fatalf("expected TriggerFailed, got %v", err)
			}
			if de.StatusCode != tt.want {
				t.Fatalf("StatusCode = %d, want %d", de.StatusCode, tt.want)
			}
		})
	}
}

func TestDispatch_LambdaClientError(t *testing.T) {
	factory := func(context.Context, string, string, string) (LambdaInvoker, error) {
		return nil, errors.New("no config")
	}
	d := New(payload.NewBuilder(testCreds, ""), WithBackend(NewLambda(testCreds, "", factory)))
	_, err := d.Dispatch(context.Background(), lambdaDoc(t, ""), "f1")
	if !errors.Is(err, ErrTriggerFailed) {
		t.Fatalf("expected TriggerFailed, got %v", err)
	}
}

func TestLambdaRegionDefault(t *testing.T) {
	l := NewLambda(testCreds, "", nil)
	if got := l.Region(workflow.Server{}); got != "us-east-1" {
		t.Fatalf("Region = %q, want us-east-1", got)
	}
	l = NewLambda(testCreds, "ap-south-1", nil)
	if got := l.Region(workflow.Server{}); got != "ap-south-1" {
		t.Fatalf("Region = %q, want configured default", got)
	}
}
