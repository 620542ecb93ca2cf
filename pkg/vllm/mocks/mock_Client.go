// Package mocks provides test doubles for the vllm client.
package mocks

import (
	"context"

	vllm "github.com/sells-group/risk-cli/pkg/vllm"
	mock "github.com/stretchr/testify/mock"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// Complete provides a mock function with given fields: ctx, req
func (_m *MockClient) Complete(ctx context.Context, req vllm.CompletionRequest) (*vllm.CompletionResponse, error) {
	ret := _m.Called(ctx, req)

	if len(ret) == 0 {
		panic("no return value specified for Complete")
	}

	var r0 *vllm.CompletionResponse
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, vllm.CompletionRequest) (*vllm.CompletionResponse, error)); ok {
		return rf(ctx, req)
	}
	if rf, ok := ret.Get(0).(func(context.Context, vllm.CompletionRequest) *vllm.CompletionResponse); ok {
		r0 = rf(ctx, req)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*vllm.CompletionResponse)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, vllm.CompletionRequest) error); ok {
		r1 = rf(ctx, req)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// Models provides a mock function with given fields: ctx
func (_m *MockClient) Models(ctx context.Context) (*vllm.ModelsResponse, error) {
	ret := _m.Called(ctx)

	if len(ret) == 0 {
		panic("no return value specified for Models")
	}

	var r0 *vllm.ModelsResponse
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context) (*vllm.ModelsResponse, error)); ok {
		return rf(ctx)
	}
	if rf, ok := ret.Get(0).(func(context.Context) *vllm.ModelsResponse); ok {
		r0 = rf(ctx)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*vllm.ModelsResponse)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context) error); ok {
		r1 = rf(ctx)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockClient creates a new instance of MockClient.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	mock := &MockClient{}
	mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
