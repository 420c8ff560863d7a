// Copyright 2025 Tomas Machalek <tomas.machalek@gmail.com>
// Copyright 2025 Department of Linguistics,
//                Faculty of Arts, Charles University
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package aggregate

import (
	"math"
	"os"
	"sort"

	"github.com/czcorpus/collexicon/record"
	"github.com/rs/zerolog/log"
)

func sortPairCounts(s []pairCount) {
	sort.Slice(s, func(i, j int) bool { return s[i].key < s[j].key })
}

// writeRunFile streams sorted pairs to path in the run-file format
// (header + fixed-width records). Disk I/O failure here is fatal to
// the whole build: callers must not trust a partial set of runs.
func writeRunFile(path string, pairs []pairCount) error {
	f, err := os.Create(path)
	if err != nil {
		return record.WrapError(record.Resource, "creating run file "+path, err)
	}
	defer f.Close()

	header := make([]byte, record.RunFileHeaderSize)
	record.EncodeRunFileHeader(header, uint64(len(pairs)))
	if _, err := f.Write(header); err != nil {
		return record.WrapError(record.Resource, "writing run file header", err)
	}

	buf := make([]byte, record.RunRecordSize)
	for _, p := range pairs {
		count := p.count
		if count > math.MaxUint32 {
			log.Warn().
				Uint64("pairKey", uint64(p.key)).
				Uint64("count", count).
				Msg("pair count exceeds run file's u32 field, saturating")
			count = math.MaxUint32
		}
		record.EncodeRunRecord(buf, p.key, uint32(count))
		if _, err := f.Write(buf); err != nil {
			return record.WrapError(record.Resource, "writing run file record", err)
		}
	}
	if err := f.Sync(); err != nil {
		return record.WrapError(record.Resource, "fsyncing run file", err)
	}
	return nil
}
