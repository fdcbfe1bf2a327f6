package sbd

import "errors"

// ErrorToken is the short sentinel GDB-facing token published in place of
// a response when either side of the handshake fails, so GDB sees a read
// failure instead of hanging.
const ErrorToken = "error"

var errNotRequestDirection = errors.New("sbd: region is not in request direction")

// PollBackend performs one non-blocking poll of a back-end's SBD region:
// if a request is pending and the semaphore is acquired, the requested
// path is read, evaluated against policy, and returned for the caller to
// forward upward as a load-file request (or reject locally). An accepted
// request leaves the region untouched, and the caller is responsible for
// eventually writing the response once GDB's bytes are ready; a rejected
// one has the ErrorToken sentinel written as its response here.
func PollBackend(region *Region, sem *Semaphore, policy *Policy) (path string, ok bool, err error) {
	acquired, err := sem.TryAcquire()
	if err != nil {
		return "", false, err
	}
	if !acquired {
		return "", false, nil
	}
	defer sem.Release()

	if region.Direction() != DirRequest {
		return "", false, nil
	}
	path = string(region.Read())
	accept, err := policy.Accept(path)
	if err != nil || !accept {
		region.Write(DirResponse, []byte(ErrorToken))
		return "", false, err
	}
	return path, true, nil
}

// RespondBackend publishes data (or the error sentinel, if data is nil)
// as the response half of the handshake. It acquires the semaphore itself
// for the write and leaves the direction flag at DirResponse.
func RespondBackend(region *Region, sem *Semaphore, data []byte) error {
	acquired, err := sem.TryAcquire()
	if err != nil {
		return err
	}
	if !acquired {
		return errors.New("sbd: could not acquire semaphore to respond")
	}
	defer sem.Release()

	if data == nil {
		return region.Write(DirResponse, []byte(ErrorToken))
	}
	return region.Write(DirResponse, data)
}

// PublishRequest is the inverse of PollBackend: GDB's side publishing a
// load request, used by tests and by any harness emulating GDB's half of
// the handshake.
func PublishRequest(region *Region, sem *Semaphore, path string) error {
	acquired, err := sem.TryAcquire()
	if err != nil {
		return err
	}
	if !acquired {
		return errors.New("sbd: could not acquire semaphore to publish request")
	}
	defer sem.Release()
	return region.Write(DirRequest, []byte(path))
}
