package cpu

// CpuInfo is a register snapshot taken before the next instruction runs.
type CpuInfo struct {
	A  uint8
	X  uint8
	Y  uint8
	SP uint8
	P  uint8
	PC uint16

	Instruction Instruction
	// Operands holds the raw instruction bytes; only the first
	// Instruction.Bytes entries are meaningful.
	Operands [3]uint8
}
