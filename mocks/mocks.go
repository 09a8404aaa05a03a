// Package mocks holds the mocks of the cqrs interfaces and helpers to inspect them.
package mocks

import "github.com/stretchr/testify/mock"

// MethodCalls returns the calls made to method in the order they were made
func MethodCalls(m *mock.Mock, method string) []mock.Call {
	var calls []mock.Call
	for _, call := range m.Calls {
		if call.Method == method {
			calls = append(calls, call)
		}
	}

	return calls
}

// CalledCommandNames returns the names of the commands passed as second argument of every call to method
func CalledCommandNames(m *mock.Mock, method string) []string {
	var names []string
	for _, call := range MethodCalls(m, method) {
		if named, ok := call.Arguments.Get(1).(interface{ Name() string }); ok {
			names = append(names, named.Name())
		}
	}

	return names
}
