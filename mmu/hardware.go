package mmu

import (
	"encoding/binary"
	"fmt"

	"gekko/exceptions"
	"gekko/memory"
)

// readFromHardware is the single guest-facing load path: translate
// (unless neverTranslate), then dispatch against the backing store or
// the MMIO bus. Multi-byte values are big-endian on the guest side and
// converted exactly here, at the host boundary. size is in bytes. A
// load straddling a page boundary translates both pages before reading
// either half.
func (m *MMU) readFromHardware(flag accessFlag, address, size uint32, neverTranslate bool) uint64 {
	if size == 8 {
		hi := m.readFromHardware(flag, address, 4, neverTranslate)
		lo := m.readFromHardware(flag, address+4, 4, neverTranslate)
		return hi<<32 | lo
	}

	startPage := address &^ uint32(hwPageMask)
	endPage := (address + size - 1) &^ uint32(hwPageMask)
	if startPage != endPage {
		firstHalf := endPage - address
		secondHalf := size - firstHalf

		if !neverTranslate && m.translationEnabled(flag) {
			// translate both pages up front so a fault raises one DSI
			// and yields no partial value
			first := m.translateAddress(flag, address)
			if !first.success() {
				if flag == flagRead {
					m.GenerateDSIException(address, false)
				}
				return 0
			}
			second := m.translateAddress(flag, endPage)
			if !second.success() {
				if flag == flagRead {
					m.GenerateDSIException(endPage, false)
				}
				return 0
			}
			return m.readFromHardware(flag, first.address, firstHalf, true)<<(8*secondHalf) |
				m.readFromHardware(flag, second.address, secondHalf, true)
		}
		return m.readFromHardware(flag, address, firstHalf, neverTranslate)<<(8*secondHalf) |
			m.readFromHardware(flag, endPage, secondHalf, neverTranslate)
	}

	physical := address
	if !neverTranslate && m.translationEnabled(flag) {
		result := m.translateAddress(flag, address)
		if !result.success() {
			if flag == flagRead {
				m.GenerateDSIException(address, false)
			}
			return 0
		}
		physical = result.address
	}

	if flag == flagRead && memory.IsMMIOAddress(physical) {
		return uint64(m.mem.MMIO().Read(physical, size))
	}

	if buf := m.mem.Resolve(physical, size); buf != nil {
		return loadBigEndian(buf, size)
	}

	m.log.Printf("MMU: unable to resolve read%d from physical %08x (effective %08x)", size*8, physical, address)
	return 0
}

// writeToHardware is the single guest-facing store path. data holds
// the value in its low size bytes; size is 1, 2 or 4 - doubleword
// stores are split by the caller. A store straddling a page boundary
// translates both pages before committing either half.
func (m *MMU) writeToHardware(flag accessFlag, address, data, size uint32, neverTranslate bool) {
	if size > 4 {
		panic(exceptions.Trap{Msg: fmt.Sprintf("writeToHardware: invalid size %d", size)})
	}

	startPage := address &^ uint32(hwPageMask)
	endPage := (address + size - 1) &^ uint32(hwPageMask)
	if startPage != endPage {
		firstHalf := endPage - address
		secondHalf := size - firstHalf

		if !neverTranslate && m.translationEnabled(flag) {
			first := m.translateAddress(flag, address)
			if !first.success() {
				if flag == flagWrite {
					m.GenerateDSIException(address, true)
				}
				return
			}
			second := m.translateAddress(flag, endPage)
			if !second.success() {
				if flag == flagWrite {
					m.GenerateDSIException(endPage, true)
				}
				return
			}
			m.writeToHardware(flag, first.address, data>>(8*secondHalf), firstHalf, true)
			m.writeToHardware(flag, second.address, data, secondHalf, true)
		} else {
			m.writeToHardware(flag, address, data>>(8*secondHalf), firstHalf, neverTranslate)
			m.writeToHardware(flag, endPage, data, secondHalf, neverTranslate)
		}
		return
	}

	physical := address
	if !neverTranslate && m.translationEnabled(flag) {
		result := m.translateAddress(flag, address)
		if !result.success() {
			if flag == flagWrite {
				m.GenerateDSIException(address, true)
			}
			return
		}
		physical = result.address
	}

	if flag == flagWrite && memory.IsMMIOAddress(physical) {
		m.mem.MMIO().Write(physical, data, size)
		return
	}

	if buf := m.mem.Resolve(physical, size); buf != nil {
		storeBigEndian(buf, data, size)
		return
	}

	m.log.Printf("MMU: unable to resolve write%d of %08x to physical %08x (effective %08x)", size*8, data, physical, address)
}

// readPhysU32 reads a guest big-endian word straight from physical
// memory, used by the page-table walk. Unbacked reads float as zero,
// which can never match a valid PTE1.
func (m *MMU) readPhysU32(physical uint32) uint32 {
	if buf := m.mem.Resolve(physical, 4); buf != nil {
		return binary.BigEndian.Uint32(buf)
	}
	return 0
}

// writePhysU32 writes a PTE word back during a walk
func (m *MMU) writePhysU32(physical, v uint32) {
	if buf := m.mem.Resolve(physical, 4); buf != nil {
		binary.BigEndian.PutUint32(buf, v)
	}
}

func loadBigEndian(buf []byte, size uint32) uint64 {
	switch size {
	case 1:
		return uint64(buf[0])
	case 2:
		return uint64(binary.BigEndian.Uint16(buf))
	case 4:
		return uint64(binary.BigEndian.Uint32(buf))
	}
	panic(exceptions.Trap{Msg: fmt.Sprintf("loadBigEndian: invalid size %d", size)})
}

func storeBigEndian(buf []byte, data, size uint32) {
	switch size {
	case 1:
		buf[0] = byte(data)
	case 2:
		binary.BigEndian.PutUint16(buf, uint16(data))
	case 4:
		binary.BigEndian.PutUint32(buf, data)
	default:
		panic(exceptions.Trap{Msg: fmt.Sprintf("storeBigEndian: invalid size %d", size)})
	}
}
