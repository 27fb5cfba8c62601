package errors

import "errors"

var ConfigError = errors.New("invalid topology configuration")
var UnknownWorkerError = errors.New("unknown worker")
var InvalidWorkerDefinitionError = errors.New("invalid worker definition")
var UnknownTargetError = errors.New("unknown target")
var UnknownConnectionKindError = errors.New("unknown connection kind")
var QueueClosedError = errors.New("queue is closed")
