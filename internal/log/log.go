// Copyright 2020 Northern.tech AS
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

// Package log wraps logrus with the module-tagging convention used
// throughout caterpillar: every package gets its own *logrus.Entry with a
// "module" field, rather than logging through the bare top-level logger.
package log

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

var base = logrus.New()

func init() {
	base.SetOutput(os.Stderr)
	base.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	base.SetLevel(logrus.InfoLevel)
}

// WithModule returns a logger tagged with the given module name, e.g.
// log.WithModule("session").Infof("entering %s", s)
func WithModule(module string) *logrus.Entry {
	return base.WithField("module", module)
}

// SetLevel parses level and sets it on the base logger. Used by
// cmd/caterpillar to apply its --log-level flag at startup.
func SetLevel(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	base.SetLevel(lvl)
	return nil
}

// SetOutput redirects the base logger, e.g. to a log file or syslog writer.
func SetOutput(w io.Writer) {
	base.SetOutput(w)
}
