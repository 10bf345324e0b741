// SPDX-FileCopyrightText: 2023-present Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package model

import "fmt"

// StatusCode is an OPC UA status code: the two most significant bits carry the
// quality (good, uncertain, bad), the rest the reason.
type StatusCode uint32

const (
	StatusGood                  StatusCode = 0x00000000
	StatusUncertain             StatusCode = 0x40000000
	StatusBad                   StatusCode = 0x80000000
	StatusBadUnexpectedError    StatusCode = 0x80010000
	StatusBadInternalError      StatusCode = 0x80020000
	StatusBadCommunicationError StatusCode = 0x80050000
	StatusBadTimeout            StatusCode = 0x800A0000
	StatusBadServerNotConnected StatusCode = 0x800D0000
	StatusBadNoCommunication    StatusCode = 0x80310000
	StatusBadNodeIDUnknown      StatusCode = 0x80340000
	StatusBadOutOfRange         StatusCode = 0x803C0000
	StatusBadTypeMismatch       StatusCode = 0x80740000
	StatusBadNotConnected       StatusCode = 0x808A0000
	StatusBadDataUnavailable    StatusCode = 0x809E0000
	StatusBadNoEntryExists      StatusCode = 0x80A00000
)

const qualityMask StatusCode = 0xC0000000

var statusNames = map[StatusCode]string{
	StatusGood:                  "Good",
	StatusUncertain:             "Uncertain",
	StatusBad:                   "Bad",
	StatusBadUnexpectedError:    "BadUnexpectedError",
	StatusBadInternalError:      "BadInternalError",
	StatusBadCommunicationError: "BadCommunicationError",
	StatusBadTimeout:            "BadTimeout",
	StatusBadServerNotConnected: "BadServerNotConnected",
	StatusBadNoCommunication:    "BadNoCommunication",
	StatusBadNodeIDUnknown:      "BadNodeIdUnknown",
	StatusBadOutOfRange:         "BadOutOfRange",
	StatusBadTypeMismatch:       "BadTypeMismatch",
	StatusBadNotConnected:       "BadNotConnected",
	StatusBadDataUnavailable:    "BadDataUnavailable",
	StatusBadNoEntryExists:      "BadNoEntryExists",
}

// IsGood reports whether the code has good quality
func (s StatusCode) IsGood() bool {
	return s&qualityMask == 0
}

// IsUncertain reports whether the code has uncertain quality
func (s StatusCode) IsUncertain() bool {
	return s&qualityMask == StatusUncertain
}

// IsBad reports whether the code has bad quality
func (s StatusCode) IsBad() bool {
	return s&StatusBad != 0
}

// Quality returns "good", "uncertain" or "bad"
func (s StatusCode) Quality() string {
	switch {
	case s.IsBad():
		return "bad"
	case s.IsUncertain():
		return "uncertain"
	default:
		return "good"
	}
}

func (s StatusCode) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("0x%08X", uint32(s))
}
