package zs042

// Address is the fixed I2C address of the DS3231 on the ZS-042 module.
const Address = 0x68

// Register is the offset of one timekeeping register.
type Register uint8

const (
	Seconds Register = 0x00 // bit 7: oscillator halt (DS1307) / must be zero (DS3231)
	Minutes Register = 0x01
	Hours   Register = 0x02 // bit 6: 12-hour mode
	Weekday Register = 0x03 // 1-7, Sunday first
	Date    Register = 0x04
	Month   Register = 0x05 // bit 7: century (DS3231), not masked: after a rollover past 2099 months read as 81-92
	Year    Register = 0x06 // offset from 2000
)

// FrameSize is the number of timekeeping registers read in one burst, starting at Seconds.
const FrameSize = 7

// registerNames is indexed by Register.
var registerNames = [FrameSize]string{"seconds", "minutes", "hours", "weekday", "date", "month", "year"}

// masks strip the flag bits sharing a register with the BCD value, indexed by Register.
var masks = [FrameSize]byte{0x7F, 0xFF, 0x3F, 0xFF, 0xFF, 0xFF, 0xFF}

func (r Register) String() string {
	if int(r) < len(registerNames) {
		return registerNames[r]
	}
	return "unknown"
}

// Mask returns the bits of r that carry the BCD value.
func (r Register) Mask() byte {
	if int(r) < len(masks) {
		return masks[r]
	}
	return 0xFF
}
