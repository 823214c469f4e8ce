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

package conf

import "path"

var (
	// DefaultConfDir is where the config file lives by default; overridden
	// in tests by pointing Load directly at a temp file instead.
	DefaultConfDir  = "/etc/caterpillar"
	DefaultConfFile = path.Join(DefaultConfDir, "caterpillar.conf")
)
