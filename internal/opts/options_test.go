/*
 * Copyright 2026 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package opts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseOrDefault(t *testing.T) {
	t.Setenv("JITLINK_TEST_INT", "")
	assert.Equal(t, 7, parseOrDefault("JITLINK_TEST_INT", 7, 1))
	t.Setenv("JITLINK_TEST_INT", "0x20")
	assert.Equal(t, 32, parseOrDefault("JITLINK_TEST_INT", 7, 1))
	t.Setenv("JITLINK_TEST_INT", "abc")
	assert.Panics(t, func() { parseOrDefault("JITLINK_TEST_INT", 7, 1) })
	t.Setenv("JITLINK_TEST_INT", "0")
	assert.Panics(t, func() { parseOrDefault("JITLINK_TEST_INT", 7, 1) })
}

func TestParseSizeOrDefault(t *testing.T) {
	t.Setenv("JITLINK_TEST_SIZE", "128KiB")
	assert.Equal(t, 128*1024, parseSizeOrDefault("JITLINK_TEST_SIZE", 1, 4096))
	t.Setenv("JITLINK_TEST_SIZE", "1m")
	assert.Equal(t, 1024*1024, parseSizeOrDefault("JITLINK_TEST_SIZE", 1, 4096))
	t.Setenv("JITLINK_TEST_SIZE", "12")
	assert.Panics(t, func() { parseSizeOrDefault("JITLINK_TEST_SIZE", 1, 4096) })
}

func TestParseBoolOrDefault(t *testing.T) {
	t.Setenv("JITLINK_TEST_BOOL", "false")
	assert.False(t, parseBoolOrDefault("JITLINK_TEST_BOOL", true))
	t.Setenv("JITLINK_TEST_BOOL", "maybe")
	assert.Panics(t, func() { parseBoolOrDefault("JITLINK_TEST_BOOL", true) })
}

func TestOptions_Align(t *testing.T) {
	o := Options{CodeAlign: 32}
	assert.Equal(t, 32, o.Align(true))
	assert.Equal(t, 8, o.Align(false))
	o.CodeAlign = 0
	a := o.Align(true)
	assert.True(t, a >= 1 && a <= 64 && a&(a-1) == 0, "alignment %d", a)
}
