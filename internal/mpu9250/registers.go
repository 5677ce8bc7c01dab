// Package mpu9250 implements the register-level MPU9250 configurator (C5):
// reset, who-am-i, full-scale-range/DLPF/sample-rate configuration, and
// AK8963 magnetometer bring-up over the I2C pass-through.
package mpu9250

// BitField describes one named bitfield of a register, reused here from the
// teacher's SPI register-table model and generalized to the I2C MPU9250 +
// AK8963 register set this driver needs.
type BitField struct {
	Bits        string
	Name        string
	Description string
	Values      string
}

// RegisterInfo describes one register's address, access mode, reset default,
// and bitfields. Used both by the configurator (as documentation) and by the
// register-debug console (C13) to render and validate register access.
type RegisterInfo struct {
	Address     byte
	Name        string
	Description string
	Access      string // "R", "W", "RW"
	Default     byte
	BitFields   []BitField
}

// Device and register addresses, bit-exact per spec.md §6.
const (
	AddrDefault  uint16 = 0x68
	AddrAlt      uint16 = 0x69
	AK8963Addr   uint16 = 0x0C
	SelfTestXGyro byte = 0x00

	RegSmplrtDiv    byte = 0x19
	RegConfig       byte = 0x1A
	RegGyroConfig   byte = 0x1B
	RegAccelConfig  byte = 0x1C
	RegAccelConfig2 byte = 0x1D
	RegLPAccelODR   byte = 0x1E
	RegFifoEn       byte = 0x23
	RegI2CMstCtrl   byte = 0x24
	RegI2CSlv0Addr  byte = 0x25
	RegI2CSlv0Reg   byte = 0x26
	RegI2CSlv0Ctrl  byte = 0x27
	RegIntPinCfg    byte = 0x37
	RegIntEnable    byte = 0x38
	RegIntStatus    byte = 0x3A
	RegAccelXoutH   byte = 0x3B
	RegTempOutH     byte = 0x41
	RegGyroXoutH    byte = 0x43
	RegExtSensData0 byte = 0x49
	RegUserCtrl     byte = 0x6A
	RegPwrMgmt1     byte = 0x6B
	RegPwrMgmt2     byte = 0x6C
	RegBankSel      byte = 0x6D
	RegMemStartAddr byte = 0x6E
	RegMemRW        byte = 0x6F
	RegDMPCfg1      byte = 0x70
	RegDMPCfg2      byte = 0x71
	RegFifoCountH   byte = 0x72
	RegFifoCountL   byte = 0x73
	RegFifoRW       byte = 0x74
	RegWhoAmI       byte = 0x75
	RegXAOffsetH    byte = 0x77
	RegXGOffsetH    byte = 0x13 // XG_OFFSET_H..ZG_OFFSET_L, 6 bytes from here

	// User control bits (RegUserCtrl)
	UserCtrlFifoEn   byte = 0x40
	UserCtrlI2CMstEn byte = 0x20
	UserCtrlDMPEn    byte = 0x80
	UserCtrlFifoRst  byte = 0x04
	UserCtrlDMPRst   byte = 0x08

	// Power management bits
	PwrMgmt1HReset byte = 0x80
	PwrMgmt1Sleep  byte = 0x40

	// FIFO_EN bits for gyro-only capture during calibration
	FifoGyroXEn byte = 0x40
	FifoGyroYEn byte = 0x20
	FifoGyroZEn byte = 0x10

	// AK8963 registers
	AK8963RegWIA   byte = 0x00
	AK8963RegST1   byte = 0x02
	AK8963RegHXL   byte = 0x03
	AK8963RegST2   byte = 0x09
	AK8963RegCNTL1 byte = 0x0A
	AK8963RegCNTL2 byte = 0x0B
	AK8963RegASTC  byte = 0x0C
	AK8963RegASAX  byte = 0x10

	AK8963ST1DataReady byte = 0x01
	AK8963ST2Overflow  byte = 0x08

	AK8963ModePowerDown   byte = 0x00
	AK8963ModeFuseROM     byte = 0x0F
	AK8963ModeCont2_100Hz byte = 0x06
	AK8963Bit16           byte = 0x10 // output resolution bit in CNTL1
)

// WhoAmIAllowlist is the set of valid WHO_AM_I responses across the MPU6050/
// 6500/9150/9250/9255 family.
var WhoAmIAllowlist = map[byte]bool{
	0x68: true,
	0x69: true,
	0x70: true,
	0x71: true,
	0x75: true,
}

// RegisterMap returns metadata for every MPU9250 register this driver and
// the register-debug console (C13) touch.
func RegisterMap() []RegisterInfo {
	return []RegisterInfo{
		{Address: RegSmplrtDiv, Name: "SMPLRT_DIV", Description: "Sample Rate Divider", Access: "RW"},
		{Address: RegConfig, Name: "CONFIG", Description: "Configuration (DLPF)", Access: "RW",
			BitFields: []BitField{
				{Bits: "2:0", Name: "DLPF_CFG", Description: "Digital Low Pass Filter", Values: "0=250Hz,1=184Hz,2=92Hz,3=41Hz,4=20Hz,5=10Hz,6=5Hz"},
			}},
		{Address: RegGyroConfig, Name: "GYRO_CONFIG", Description: "Gyroscope Configuration", Access: "RW",
			BitFields: []BitField{
				{Bits: "4:3", Name: "GYRO_FS_SEL", Description: "Gyro Full Scale Range", Values: "0=250dps,1=500dps,2=1000dps,3=2000dps"},
			}},
		{Address: RegAccelConfig, Name: "ACCEL_CONFIG", Description: "Accelerometer Configuration", Access: "RW",
			BitFields: []BitField{
				{Bits: "4:3", Name: "ACCEL_FS_SEL", Description: "Accel Full Scale Range", Values: "0=2g,1=4g,2=8g,3=16g"},
			}},
		{Address: RegAccelConfig2, Name: "ACCEL_CONFIG2", Description: "Accelerometer Configuration 2", Access: "RW"},
		{Address: RegFifoEn, Name: "FIFO_EN", Description: "FIFO Enable", Access: "RW"},
		{Address: RegI2CMstCtrl, Name: "I2C_MST_CTRL", Description: "I2C Master Control", Access: "RW"},
		{Address: RegI2CSlv0Addr, Name: "I2C_SLV0_ADDR", Description: "I2C Slave 0 Address", Access: "RW"},
		{Address: RegI2CSlv0Reg, Name: "I2C_SLV0_REG", Description: "I2C Slave 0 Register", Access: "RW"},
		{Address: RegI2CSlv0Ctrl, Name: "I2C_SLV0_CTRL", Description: "I2C Slave 0 Control", Access: "RW"},
		{Address: RegIntPinCfg, Name: "INT_PIN_CFG", Description: "INT Pin / Bypass Enable", Access: "RW",
			BitFields: []BitField{
				{Bits: "1", Name: "BYPASS_EN", Description: "I2C bypass enable", Values: "0=Disabled,1=Enabled"},
			}},
		{Address: RegIntEnable, Name: "INT_ENABLE", Description: "Interrupt Enable", Access: "RW"},
		{Address: RegIntStatus, Name: "INT_STATUS", Description: "Interrupt Status", Access: "R"},
		{Address: RegAccelXoutH, Name: "ACCEL_XOUT_H", Description: "Accelerometer Measurements", Access: "R"},
		{Address: RegTempOutH, Name: "TEMP_OUT_H", Description: "Temperature Measurement", Access: "R"},
		{Address: RegGyroXoutH, Name: "GYRO_XOUT_H", Description: "Gyroscope Measurements", Access: "R"},
		{Address: RegExtSensData0, Name: "EXT_SENS_DATA_00", Description: "External Sensor Data (magnetometer via I2C master)", Access: "R"},
		{Address: RegUserCtrl, Name: "USER_CTRL", Description: "User Control", Access: "RW",
			BitFields: []BitField{
				{Bits: "7", Name: "DMP_EN", Description: "DMP Enable", Values: "0=Disabled,1=Enabled"},
				{Bits: "6", Name: "FIFO_EN", Description: "FIFO Enable", Values: "0=Disabled,1=Enabled"},
				{Bits: "5", Name: "I2C_MST_EN", Description: "I2C Master Enable", Values: "0=Disabled,1=Enabled"},
				{Bits: "3", Name: "DMP_RST", Description: "DMP reset", Values: "1=Reset"},
				{Bits: "2", Name: "FIFO_RST", Description: "FIFO reset", Values: "1=Reset"},
			}},
		{Address: RegPwrMgmt1, Name: "PWR_MGMT_1", Description: "Power Management 1", Access: "RW",
			BitFields: []BitField{
				{Bits: "7", Name: "H_RESET", Description: "Device reset", Values: "1=Reset"},
				{Bits: "6", Name: "SLEEP", Description: "Sleep mode", Values: "1=Sleep"},
			}},
		{Address: RegPwrMgmt2, Name: "PWR_MGMT_2", Description: "Power Management 2", Access: "RW"},
		{Address: RegBankSel, Name: "BANK_SEL", Description: "DMP Memory Bank Select", Access: "W"},
		{Address: RegMemStartAddr, Name: "MEM_START_ADDR", Description: "DMP Memory Start Address", Access: "W"},
		{Address: RegMemRW, Name: "MEM_R_W", Description: "DMP Memory Read/Write", Access: "RW"},
		{Address: RegDMPCfg1, Name: "DMP_CFG_1", Description: "DMP Program Start Address High", Access: "RW"},
		{Address: RegDMPCfg2, Name: "DMP_CFG_2", Description: "DMP Program Start Address Low", Access: "RW"},
		{Address: RegFifoCountH, Name: "FIFO_COUNTH", Description: "FIFO Count High", Access: "R"},
		{Address: RegFifoCountL, Name: "FIFO_COUNTL", Description: "FIFO Count Low", Access: "R"},
		{Address: RegFifoRW, Name: "FIFO_R_W", Description: "FIFO Read/Write", Access: "RW"},
		{Address: RegWhoAmI, Name: "WHO_AM_I", Description: "Device ID", Access: "R", Default: 0x71},
		{Address: RegXGOffsetH, Name: "XG_OFFSET_H", Description: "Gyro X Offset (6 bytes follow: X,Y,Z high/low)", Access: "RW"},
	}
}

// AK8963RegisterMap returns metadata for AK8963 magnetometer registers.
func AK8963RegisterMap() []RegisterInfo {
	return []RegisterInfo{
		{Address: AK8963RegWIA, Name: "WIA", Description: "Device ID", Access: "R", Default: 0x48},
		{Address: AK8963RegST1, Name: "ST1", Description: "Status 1 (data ready)", Access: "R",
			BitFields: []BitField{{Bits: "0", Name: "DRDY", Description: "Data ready", Values: "1=Ready"}}},
		{Address: AK8963RegHXL, Name: "HXL", Description: "Measurement data (7 bytes: HXL..HZH, ST2)", Access: "R"},
		{Address: AK8963RegST2, Name: "ST2", Description: "Status 2 (overflow)", Access: "R",
			BitFields: []BitField{{Bits: "3", Name: "HOFL", Description: "Magnetic sensor overflow", Values: "1=Overflow"}}},
		{Address: AK8963RegCNTL1, Name: "CNTL1", Description: "Control 1 (mode/resolution)", Access: "RW"},
		{Address: AK8963RegCNTL2, Name: "CNTL2", Description: "Control 2 (soft reset)", Access: "RW"},
		{Address: AK8963RegASTC, Name: "ASTC", Description: "Self-test control", Access: "RW"},
		{Address: AK8963RegASAX, Name: "ASAX", Description: "Sensitivity adjustment (3 bytes: X,Y,Z)", Access: "R"},
	}
}
