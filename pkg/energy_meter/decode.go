package energy_meter

import (
	"encoding/binary"
	"fmt"
	"math"
)

const maxExponent = 9

var pow10 = [maxExponent + 1]int32{1, 10, 100, 1000, 10000, 100000, 1000000, 10000000, 100000000, 1000000000}

// CombineBytes reassembles the value starting at byte pos of buf into native
// (little endian) byte order. Only the first word pair is used for 16 bit types.
func CombineBytes(buf []byte, pos int, order ByteOrder, dataType DataType) []byte {
	if dataType == DATATYPE_INT16 {
		switch order {
		case LBF_LWF, LBF_HWF:
			return []byte{buf[pos], buf[pos+1]}
		default:
			return []byte{buf[pos+1], buf[pos]}
		}
	}
	switch order {
	case LBF_LWF:
		return []byte{buf[pos], buf[pos+1], buf[pos+2], buf[pos+3]}
	case LBF_HWF:
		return []byte{buf[pos+2], buf[pos+3], buf[pos], buf[pos+1]}
	case HBF_LWF:
		return []byte{buf[pos+1], buf[pos], buf[pos+3], buf[pos+2]}
	default:
		return []byte{buf[pos+3], buf[pos+2], buf[pos+1], buf[pos]}
	}
}

// SplitBytes is the inverse of CombineBytes: it writes native ordered bytes
// into buf at pos using the wire order.
func SplitBytes(buf []byte, pos int, native []byte, order ByteOrder, dataType DataType) {
	if dataType == DATATYPE_INT16 {
		switch order {
		case LBF_LWF, LBF_HWF:
			buf[pos], buf[pos+1] = native[0], native[1]
		default:
			buf[pos], buf[pos+1] = native[1], native[0]
		}
		return
	}
	switch order {
	case LBF_LWF:
		copy(buf[pos:pos+4], native[:4])
	case LBF_HWF:
		buf[pos+2], buf[pos+3], buf[pos], buf[pos+1] = native[0], native[1], native[2], native[3]
	case HBF_LWF:
		buf[pos+1], buf[pos], buf[pos+3], buf[pos+2] = native[0], native[1], native[2], native[3]
	default:
		buf[pos+3], buf[pos+2], buf[pos+1], buf[pos] = native[0], native[1], native[2], native[3]
	}
}

// Decode reads value number index of buf and scales it by 10^-exponent.
// A negative exponent multiplies. Both paths truncate toward zero.
func Decode(buf []byte, index int, order ByteOrder, dataType DataType, exponent int8) int32 {
	if exponent < -maxExponent || exponent > maxExponent {
		panic(fmt.Sprintf("energy_meter: exponent %d out of range", exponent))
	}
	raw := CombineBytes(buf, index*dataType.Width(), order, dataType)

	if dataType == DATATYPE_FLOAT32 {
		value := math.Float32frombits(binary.LittleEndian.Uint32(raw))
		if exponent >= 0 {
			return int32(value / float32(pow10[exponent]))
		}
		return int32(value * float32(pow10[-exponent]))
	}

	var value int32
	if dataType == DATATYPE_INT16 {
		value = int32(int16(binary.LittleEndian.Uint16(raw)))
	} else {
		value = int32(binary.LittleEndian.Uint32(raw))
	}
	if exponent >= 0 {
		return value / pow10[exponent]
	}
	return value * pow10[-exponent]
}

// Encode is the inverse of Decode for the integer types, used to build frames.
// Float values are written unscaled when exponent is 0.
func Encode(buf []byte, index int, order ByteOrder, dataType DataType, value int32, exponent int8) {
	if exponent < -maxExponent || exponent > maxExponent {
		panic(fmt.Sprintf("energy_meter: exponent %d out of range", exponent))
	}
	native := make([]byte, 4)
	switch dataType {
	case DATATYPE_FLOAT32:
		f := float32(value)
		if exponent >= 0 {
			f *= float32(pow10[exponent])
		} else {
			f /= float32(pow10[-exponent])
		}
		binary.LittleEndian.PutUint32(native, math.Float32bits(f))
	case DATATYPE_INT16:
		binary.LittleEndian.PutUint16(native, uint16(int16(scaleUp(value, exponent))))
	default:
		binary.LittleEndian.PutUint32(native, uint32(scaleUp(value, exponent)))
	}
	SplitBytes(buf, index*dataType.Width(), native, order, dataType)
}

func scaleUp(value int32, exponent int8) int32 {
	if exponent >= 0 {
		return value * pow10[exponent]
	}
	return value / pow10[-exponent]
}
