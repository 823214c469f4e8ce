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

package installer

import (
	"os"

	"github.com/mendersoftware/mender-artifact/areader"
	"github.com/pkg/errors"
)

// ArtifactInspector reads the declared version and compatible-device list
// out of a bundle's header without performing any signature or
// compatibility verification — that is left to the external installer, per
// the Non-goal of no custom bundle verification.
type ArtifactInspector struct{}

func NewArtifactInspector() *ArtifactInspector {
	return &ArtifactInspector{}
}

func (a *ArtifactInspector) Inspect(path string) (declaredVersion string, compatibleDevices []string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", nil, errors.Wrapf(err, "opening bundle %s", path)
	}
	defer f.Close()

	r := areader.NewReader(f)
	if err := r.ReadArtifact(); err != nil {
		return "", nil, errors.Wrapf(err, "reading bundle header %s", path)
	}

	return r.GetArtifactName(), r.GetCompatibleDevices(), nil
}
