package rpcpool

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func statusOutOfRange() error {
	return status.Error(codes.OutOfRange, "sequence pool exhausted")
}

func statusUnavailable() error {
	return status.Error(codes.Unavailable, "server shutting down")
}
