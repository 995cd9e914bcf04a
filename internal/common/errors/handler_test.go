// internal/common/errors/handler_test.go
package errors

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/commands"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Error(string, map[string]interface{}) {}

// fakeJobClient records which command the handler dispatched and with
// what arguments.
type fakeJobClient struct {
	failSent    bool
	failKey     int64
	failRetries int32
	failMessage string
	failVars    string

	throwSent    bool
	throwKey     int64
	throwCode    string
	throwMessage string
	throwVars    string
}

func (f *fakeJobClient) NewCompleteJobCommand() commands.CompleteJobCommandStep1 {
	return &fakeCompleteCmd{}
}

func (f *fakeJobClient) NewFailJobCommand() commands.FailJobCommandStep1 {
	return &fakeFailCmd{client: f}
}

func (f *fakeJobClient) NewThrowErrorCommand() commands.ThrowErrorCommandStep1 {
	return &fakeThrowCmd{client: f}
}

type fakeFailCmd struct{ client *fakeJobClient }

func (c *fakeFailCmd) JobKey(key int64) commands.FailJobCommandStep2 {
	c.client.failKey = key
	return c
}

func (c *fakeFailCmd) Retries(retries int32) commands.FailJobCommandStep3 {
	c.client.failRetries = retries
	return c
}

func (c *fakeFailCmd) RetryBackoff(time.Duration) commands.FailJobCommandStep3 { return c }

func (c *fakeFailCmd) ErrorMessage(msg string) commands.FailJobCommandStep3 {
	c.client.failMessage = msg
	return c
}

func (c *fakeFailCmd) VariablesFromString(vars string) (commands.DispatchFailJobCommand, error) {
	c.client.failVars = vars
	return c, nil
}

func (c *fakeFailCmd) VariablesFromStringer(vars fmt.Stringer) (commands.DispatchFailJobCommand, error) {
	return c.VariablesFromString(vars.String())
}

func (c *fakeFailCmd) VariablesFromMap(map[string]interface{}) (commands.DispatchFailJobCommand, error) {
	return c, nil
}

func (c *fakeFailCmd) VariablesFromObject(interface{}) (commands.DispatchFailJobCommand, error) {
	return c, nil
}

func (c *fakeFailCmd) VariablesFromObjectIgnoreOmitempty(interface{}) (commands.DispatchFailJobCommand, error) {
	return c, nil
}

func (c *fakeFailCmd) Send(context.Context) (*pb.FailJobResponse, error) {
	c.client.failSent = true
	return &pb.FailJobResponse{}, nil
}

type fakeThrowCmd struct{ client *fakeJobClient }

func (c *fakeThrowCmd) JobKey(key int64) commands.ThrowErrorCommandStep2 {
	c.client.throwKey = key
	return c
}

func (c *fakeThrowCmd) ErrorCode(code string) commands.DispatchThrowErrorCommand {
	c.client.throwCode = code
	return c
}

func (c *fakeThrowCmd) ErrorMessage(msg string) commands.DispatchThrowErrorCommand {
	c.client.throwMessage = msg
	return c
}

func (c *fakeThrowCmd) VariablesFromString(vars string) (commands.DispatchThrowErrorCommand, error) {
	c.client.throwVars = vars
	return c, nil
}

func (c *fakeThrowCmd) VariablesFromStringer(vars fmt.Stringer) (commands.DispatchThrowErrorCommand, error) {
	return c.VariablesFromString(vars.String())
}

func (c *fakeThrowCmd) VariablesFromMap(map[string]interface{}) (commands.DispatchThrowErrorCommand, error) {
	return c, nil
}

func (c *fakeThrowCmd) VariablesFromObject(interface{}) (commands.DispatchThrowErrorCommand, error) {
	return c, nil
}

func (c *fakeThrowCmd) VariablesFromObjectIgnoreOmitempty(interface{}) (commands.DispatchThrowErrorCommand, error) {
	return c, nil
}

func (c *fakeThrowCmd) Send(context.Context) (*pb.ThrowErrorResponse, error) {
	c.client.throwSent = true
	return &pb.ThrowErrorResponse{}, nil
}

type fakeCompleteCmd struct{}

func (c *fakeCompleteCmd) JobKey(int64) commands.CompleteJobCommandStep2 { return c }

func (c *fakeCompleteCmd) VariablesFromString(string) (commands.DispatchCompleteJobCommand, error) {
	return c, nil
}

func (c *fakeCompleteCmd) VariablesFromStringer(fmt.Stringer) (commands.DispatchCompleteJobCommand, error) {
	return c, nil
}

func (c *fakeCompleteCmd) VariablesFromMap(map[string]interface{}) (commands.DispatchCompleteJobCommand, error) {
	return c, nil
}

func (c *fakeCompleteCmd) VariablesFromObject(interface{}) (commands.DispatchCompleteJobCommand, error) {
	return c, nil
}

func (c *fakeCompleteCmd) VariablesFromObjectIgnoreOmitempty(interface{}) (commands.DispatchCompleteJobCommand, error) {
	return c, nil
}

func (c *fakeCompleteCmd) Send(context.Context) (*pb.CompleteJobResponse, error) {
	return &pb.CompleteJobResponse{}, nil
}

func testJob(retries int32) entities.Job {
	return entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:     42,
		Type:    "record-payment",
		Retries: retries,
	}}
}

func TestHandleJobError_RetryableCodeFailsWithRetries(t *testing.T) {
	client := &fakeJobClient{}
	h := NewErrorHandler(nopLogger{})

	h.HandleJobError(context.Background(), client, testJob(5),
		NewStandardError(ErrCodeDatabaseInsertFailed, "insert blew up"))

	require.True(t, client.failSent)
	assert.False(t, client.throwSent)
	assert.Equal(t, int64(42), client.failKey)
	assert.Equal(t, int32(3), client.failRetries)
	assert.Contains(t, client.failVars, "DATABASE_INSERT_FAILED")
}

func TestHandleJobError_EngineRetriesCapTheRetryCount(t *testing.T) {
	client := &fakeJobClient{}
	h := NewErrorHandler(nopLogger{})

	h.HandleJobError(context.Background(), client, testJob(1),
		NewStandardError(ErrCodeQueryExecutionFailed, "connection reset"))

	require.True(t, client.failSent)
	assert.Equal(t, int32(1), client.failRetries)
}

func TestHandleJobError_BusinessCodeThrowsBPMNError(t *testing.T) {
	client := &fakeJobClient{}
	h := NewErrorHandler(nopLogger{})

	h.HandleJobError(context.Background(), client, testJob(5),
		NewStandardError(ErrCodeInvalidAmount, "amount -10.00"))

	require.True(t, client.throwSent)
	assert.False(t, client.failSent)
	assert.Equal(t, int64(42), client.throwKey)
	assert.Equal(t, "INVALID_AMOUNT", client.throwCode)
	assert.Contains(t, client.throwVars, "errorCode")
}

func TestHandleJobError_ExhaustedRetriesThrow(t *testing.T) {
	client := &fakeJobClient{}
	h := NewErrorHandler(nopLogger{})

	h.HandleJobError(context.Background(), client, testJob(0),
		NewStandardError(ErrCodeDatabaseInsertFailed, "still down"))

	require.True(t, client.throwSent)
	assert.False(t, client.failSent)
	assert.Equal(t, "DATABASE_INSERT_FAILED", client.throwCode)
}

func TestHandleJobError_PlainErrorsAreNormalized(t *testing.T) {
	client := &fakeJobClient{}
	h := NewErrorHandler(nopLogger{})

	h.HandleJobError(context.Background(), client, testJob(3),
		fmt.Errorf("something unexpected"))

	require.True(t, client.throwSent)
	assert.False(t, client.failSent)
}
