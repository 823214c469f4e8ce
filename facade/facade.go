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

// Package facade exposes the session state machine as the remote object of
// spec section 6.1 (component C7): the SearchForUpdate/InstallUpdate
// methods, the State/MarkedForReboot/Updated properties, and the
// UpdateFound signal.
package facade

import (
	"context"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"github.com/godbus/dbus/v5/prop"

	"github.com/dvzrv/caterpillar/internal/log"
	"github.com/dvzrv/caterpillar/session"
)

var logger = log.WithModule("facade")

const (
	BusName    = "io.github.dvzrv.Caterpillar"
	ObjectPath = "/io/github/dvzrv/Caterpillar"
	IfaceName  = "io.github.dvzrv.Caterpillar"
)

// machine is the subset of *session.Machine the façade drives; narrowed to
// an interface so it can be exercised with a fake in tests.
type machine interface {
	SearchForUpdate(ctx context.Context) error
	InstallUpdate(ctx context.Context, update, reboot bool) error
}

// Service owns the session machine and republishes every observable
// mutation it produces over the system bus. It implements
// session.Publisher.
type Service struct {
	conn    *dbus.Conn
	machine machine
	props   *prop.Properties
}

// NewService registers the façade object on conn and returns a Service
// ready to be handed to session.NewMachine as its Publisher. The session
// machine itself is set with Attach once constructed, breaking the
// otherwise-circular construction order (Machine needs a Publisher, Service
// needs a Machine to call back into).
func NewService(conn *dbus.Conn) (*Service, error) {
	s := &Service{conn: conn}

	propsSpec := prop.Map{
		IfaceName: {
			"State": {
				Value:    session.StateInit.String(),
				Writable: false,
				Emit:     prop.EmitTrue,
			},
			"MarkedForReboot": {
				Value:    false,
				Writable: false,
				Emit:     prop.EmitTrue,
			},
			"Updated": {
				Value:    false,
				Writable: false,
				Emit:     prop.EmitTrue,
			},
		},
	}
	props, err := prop.Export(conn, ObjectPath, propsSpec)
	if err != nil {
		return nil, err
	}
	s.props = props

	if err := conn.Export(s, ObjectPath, IfaceName); err != nil {
		return nil, err
	}

	node := &introspect.Node{
		Name: ObjectPath,
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			prop.IntrospectData,
			{
				Name: IfaceName,
				Methods: []introspect.Method{
					{Name: "SearchForUpdate"},
					{Name: "InstallUpdate", Args: []introspect.Arg{
						{Name: "update", Type: "b", Direction: "in"},
						{Name: "reboot", Type: "b", Direction: "in"},
					}},
				},
				Signals: []introspect.Signal{
					{Name: "UpdateFound", Args: []introspect.Arg{
						{Name: "path", Type: "s", Direction: "out"},
						{Name: "current_version", Type: "s", Direction: "out"},
						{Name: "candidate_version", Type: "s", Direction: "out"},
						{Name: "is_override", Type: "b", Direction: "out"},
					}},
				},
				Properties: props.Introspection(IfaceName),
			},
		},
	}
	if err := conn.Export(introspect.NewIntrospectable(node), ObjectPath,
		"org.freedesktop.DBus.Introspectable"); err != nil {
		return nil, err
	}

	if _, err := conn.RequestName(BusName, dbus.NameFlagDoNotQueue); err != nil {
		return nil, err
	}

	return s, nil
}

// Attach wires the session machine this façade drives. Called once at
// startup after both Service and session.Machine exist.
func (s *Service) Attach(m machine) {
	s.machine = m
}

// SearchForUpdate is the exported D-Bus method.
func (s *Service) SearchForUpdate() *dbus.Error {
	if err := s.machine.SearchForUpdate(context.Background()); err != nil {
		logger.Warnf("SearchForUpdate rejected: %s", err)
		return dbus.MakeFailedError(err)
	}
	return nil
}

// InstallUpdate is the exported D-Bus method.
func (s *Service) InstallUpdate(update, reboot bool) *dbus.Error {
	if err := s.machine.InstallUpdate(context.Background(), update, reboot); err != nil {
		logger.Warnf("InstallUpdate rejected: %s", err)
		return dbus.MakeFailedError(err)
	}
	return nil
}

// PublishState implements session.Publisher.
func (s *Service) PublishState(state session.State) {
	s.props.SetMust(IfaceName, "State", state.String())
}

// PublishMarkedForReboot implements session.Publisher.
func (s *Service) PublishMarkedForReboot(v bool) {
	s.props.SetMust(IfaceName, "MarkedForReboot", v)
}

// PublishUpdated implements session.Publisher.
func (s *Service) PublishUpdated(v bool) {
	s.props.SetMust(IfaceName, "Updated", v)
}

// PublishUpdateFound implements session.Publisher, emitting the UpdateFound
// signal exactly once per session per spec section 4.7.
func (s *Service) PublishUpdateFound(path, currentVersion, candidateVersion string, isOverride bool) {
	err := s.conn.Emit(dbus.ObjectPath(ObjectPath), IfaceName+".UpdateFound",
		path, currentVersion, candidateVersion, isOverride)
	if err != nil {
		logger.Warnf("emitting UpdateFound failed: %s", err)
	}
}

var _ session.Publisher = (*Service)(nil)
