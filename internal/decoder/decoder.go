// Package decoder 解析蓝牙 Heart Rate Measurement 特征值（0x2A37）
//
// Flags 字节布局：
//
//	| 0x10 | 0x08 | 0x04  0x02 | 0x01 |
//	|  rr  | nrg  | scs   cnt  | fmt  |
package decoder

import (
	"encoding/binary"
	"errors"
	"fmt"

	"wisefido-hrm/internal/models"
)

const (
	flagHeartRate16    = 0x01
	flagContactStatus  = 0x02
	flagContactSupport = 0x04
	flagEnergyExpended = 0x08
	flagRRPresent      = 0x10

	// R-R 分辨率为 1/1024 秒
	rrResolution = 1024.0
)

// ErrMalformedPacket 所有 MalformedPacketError 都包装此错误，便于 errors.Is 判断
var ErrMalformedPacket = errors.New("malformed heart rate packet")

// MalformedPacketError 通知内容不足以按 flags 声明的格式解码
type MalformedPacketError struct {
	Reason string
	Length int
}

func (e *MalformedPacketError) Error() string {
	return fmt.Sprintf("%s: %s (payload length %d)", ErrMalformedPacket, e.Reason, e.Length)
}

func (e *MalformedPacketError) Unwrap() error {
	return ErrMalformedPacket
}

// Decode 将一条原始通知解码为 Reading
// 纯函数，不保留任何状态。
func Decode(payload []byte) (*models.Reading, error) {
	if len(payload) == 0 {
		return nil, &MalformedPacketError{Reason: "empty payload", Length: 0}
	}

	flags := payload[0]
	offset := 1

	reading := &models.Reading{
		ContactSupported: flags&flagContactSupport != 0,
		ContactDetected:  flags&flagContactSupport != 0 && flags&flagContactStatus != 0,
	}

	if flags&flagHeartRate16 != 0 {
		if len(payload) < offset+2 {
			return nil, &MalformedPacketError{Reason: "undersized 16-bit heart rate field", Length: len(payload)}
		}
		reading.HeartRate = binary.LittleEndian.Uint16(payload[offset:])
		offset += 2
	} else {
		if len(payload) < offset+1 {
			return nil, &MalformedPacketError{Reason: "undersized 8-bit heart rate field", Length: len(payload)}
		}
		reading.HeartRate = uint16(payload[offset])
		offset++
	}

	// 能量消耗字段位于 R-R 之前，必须跳过才能保证 R-R 偏移正确
	if flags&flagEnergyExpended != 0 {
		if len(payload) < offset+2 {
			return nil, &MalformedPacketError{Reason: "undersized energy expended field", Length: len(payload)}
		}
		energy := binary.LittleEndian.Uint16(payload[offset:])
		reading.EnergyExpended = &energy
		offset += 2
	}

	if flags&flagRRPresent != 0 {
		rest := payload[offset:]
		if n := len(rest) / 2; n > 0 {
			reading.RRIntervals = make([]float64, 0, n)
		}
		// 末尾不足 2 字节的残余直接丢弃
		for len(rest) >= 2 {
			v := binary.LittleEndian.Uint16(rest)
			reading.RRIntervals = append(reading.RRIntervals, float64(v)/rrResolution)
			rest = rest[2:]
		}
	}

	return reading, nil
}
