// Copyright 2024 Northern.tech AS
//
//    Licensed under the Apache License, Version 2.0 (the "License");
//    you may not use this file except in compliance with the License.
//    You may obtain a copy of the License at
//
//        http://www.apache.org/licenses/LICENSE-2.0
//
//    Unless required by applicable law or agreed to in writing, software
//    distributed under the License is distributed on an "AS IS" BASIS,
//    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//    See the License for the specific language governing permissions and
//    limitations under the License.

// Package blockdevice is the adapter to the external block-device
// enumerator (component C3): it lists removable block devices, and mounts
// and unmounts them on request. The caller — session.Machine — owns all
// mount bookkeeping; a Client must not retain state between calls.
package blockdevice

import "context"

// Client abstracts the external block-device enumerator.
type Client interface {
	// Enumerate returns the identifiers of block objects matching the
	// caller's device pattern.
	Enumerate(ctx context.Context) ([]string, error)
	// Mount requests that id be mounted, returning its mount point.
	// Refusal (unsupported filesystem, already mounted, permission) is
	// reported as an error and is non-fatal to the caller's session.
	Mount(ctx context.Context, id string) (string, error)
	// Unmount requests that id be unmounted. Failure is reported but does
	// not prevent the caller from attempting other devices.
	Unmount(ctx context.Context, id string) error
}

// MountRecord is kept by the session for every successful mount, so it can
// be unmounted on cleanup even if the session aborts partway through.
type MountRecord struct {
	DeviceID   string
	MountPoint string
}
