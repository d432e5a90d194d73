// Copyright 2024 Chipflow. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package crosec

import (
	"errors"
	"fmt"
	"time"

	"github.com/chipflow/crosec/protocol"
)

var (
	// ErrImageTooBig rejects an update image larger than the target
	// region before anything is erased.
	ErrImageTooBig = errors.New("image does not fit in target flash region")

	// ErrHashTimeout means the controller stayed busy past the retry
	// budget while computing a flash hash.
	ErrHashTimeout = errors.New("timed out waiting for flash hash")
)

// hashRetries bounds how long ReadVbootHash waits for a busy
// controller before giving up.
const (
	hashRetries    = 64
	hashRetryDelay = 10 * time.Millisecond
)

// FlashInfo reads the controller's flash geometry. The result is cached
// for the lifetime of the handle; geometry does not change at runtime.
func (d *Device) FlashInfo() (*protocol.FlashInfoResponse, error) {
	if d.flashInfo != nil {
		return d.flashInfo, nil
	}
	resp, err := d.command(protocol.CmdFlashInfo, 0, nil, 16)
	if err != nil {
		return nil, err
	}
	info, err := protocol.ParseFlashInfoResponse(resp)
	if err != nil {
		return nil, err
	}
	d.flashInfo = info
	return info, nil
}

// FlashRead reads size bytes of flash starting at offset, transparently
// splitting the transfer into payload-sized exchanges.
func (d *Device) FlashRead(offset, size uint32) ([]byte, error) {
	out := make([]byte, 0, size)
	for done := uint32(0); done < size; {
		chunk := size - done
		if chunk > protocol.MaxPayloadSize {
			chunk = protocol.MaxPayloadSize
		}
		p := protocol.FlashReadParams{Offset: offset + done, Size: chunk}
		resp, err := d.command(protocol.CmdFlashRead, 0, p.Marshal(), int(chunk))
		if err != nil {
			return nil, fmt.Errorf("flash read at 0x%x: %w", offset+done, err)
		}
		out = append(out, resp[:chunk]...)
		done += chunk
	}
	return out, nil
}

// writeBurst is the largest data chunk one flash write exchange can
// carry, rounded down to the controller's write block size. A block
// size bigger than the payload budget would round the burst to zero;
// writes need not be block-aligned at the protocol level, so the raw
// burst is kept in that case.
func (d *Device) writeBurst() (uint32, error) {
	burst := uint32(protocol.MaxPayloadSize - protocol.FlashWriteHeaderSize)
	info, err := d.FlashInfo()
	if err != nil {
		return 0, err
	}
	if info.WriteBlockSize > 0 && info.WriteBlockSize <= burst {
		burst -= burst % info.WriteBlockSize
	}
	return burst, nil
}

// isErased reports whether every byte of data already holds the
// erased-flash value.
func (d *Device) isErased(data []byte) bool {
	if d.eraseValue < 0 {
		return false
	}
	v := byte(d.eraseValue)
	for _, b := range data {
		if b != v {
			return false
		}
	}
	return true
}

// FlashWrite programs data into flash at offset, chunked to the write
// burst size. When the board config names the erased-byte value, chunks
// that already hold it are skipped; the caller is expected to have
// erased the range first.
func (d *Device) FlashWrite(offset uint32, data []byte) error {
	burst, err := d.writeBurst()
	if err != nil {
		return err
	}
	for done := uint32(0); done < uint32(len(data)); {
		chunk := uint32(len(data)) - done
		if chunk > burst {
			chunk = burst
		}
		body := data[done : done+chunk]
		if d.optimiseFlashWrite && d.isErased(body) {
			done += chunk
			continue
		}
		p := protocol.FlashWriteParams{Offset: offset + done, Size: chunk, Data: body}
		if _, err := d.command(protocol.CmdFlashWrite, 0, p.Marshal(), 0); err != nil {
			return fmt.Errorf("flash write at 0x%x: %w", offset+done, err)
		}
		done += chunk
	}
	return nil
}

// FlashErase erases size bytes of flash at offset. The range must be
// aligned to the controller's erase block size.
func (d *Device) FlashErase(offset, size uint32) error {
	p := protocol.FlashEraseParams{Offset: offset, Size: size}
	_, err := d.command(protocol.CmdFlashErase, 0, p.Marshal(), 0)
	return err
}

// FlashProtect applies setFlags to the protection bits selected by
// setMask and returns the resulting state. A zero mask changes nothing
// and reads the current state.
func (d *Device) FlashProtect(setMask, setFlags uint32) (*protocol.FlashProtectResponse, error) {
	p := protocol.FlashProtectParams{Mask: setMask, Flags: setFlags}
	resp, err := d.command(protocol.CmdFlashProtect, 1, p.Marshal(), 12)
	if err != nil {
		return nil, err
	}
	return protocol.ParseFlashProtectResponse(resp)
}

// FlashOffset resolves a named region to its offset and size, from the
// board layout when pinned there, otherwise by asking the controller.
// Resolved regions are cached.
func (d *Device) FlashOffset(region protocol.FlashRegion) (offset, size uint32, err error) {
	if ext, ok := d.regions[region]; ok {
		return ext.Offset, ext.Size, nil
	}
	p := protocol.FlashRegionInfoParams{Region: region}
	resp, err := d.command(protocol.CmdFlashRegionInfo, 1, p.Marshal(), 8)
	if err != nil {
		return 0, 0, err
	}
	r, err := protocol.ParseFlashRegionInfoResponse(resp)
	if err != nil {
		return 0, 0, err
	}
	d.regions[region] = Extent{Offset: r.Offset, Size: r.Size}
	return r.Offset, r.Size, nil
}

// FlashUpdateRW replaces the active (RW) region with image: erase the
// whole region, then program the image. The controller must be running
// its RO image.
func (d *Device) FlashUpdateRW(image []byte) error {
	offset, size, err := d.FlashOffset(protocol.RegionActive)
	if err != nil {
		return err
	}
	if uint32(len(image)) > size {
		return fmt.Errorf("%w: %d bytes into %d", ErrImageTooBig, len(image), size)
	}
	if d.log != nil {
		d.log.Info().
			Uint32("offset", offset).
			Int("bytes", len(image)).
			Msg("updating rw image")
	}
	if err := d.FlashErase(offset, size); err != nil {
		return err
	}
	return d.FlashWrite(offset, image)
}

// ReadVbootHash reads the controller's hash of the flash range at
// [offset, offset+size), kicking off a recalculation when none is
// available and waiting out busy answers.
func (d *Device) ReadVbootHash(offset, size uint32) (*protocol.VbootHashResponse, error) {
	get := protocol.VbootHashParams{
		Cmd:    protocol.VbootHashGet,
		Offset: offset,
		Size:   size,
	}
	started := false
	for attempt := 0; attempt < hashRetries; attempt++ {
		resp, err := d.command(protocol.CmdVbootHash, 0, get.Marshal(), 12)
		if err != nil {
			return nil, err
		}
		r, err := protocol.ParseVbootHashResponse(resp)
		if err != nil {
			return nil, err
		}
		switch r.Status {
		case protocol.VbootHashStatusDone:
			return r, nil
		case protocol.VbootHashStatusBusy:
			time.Sleep(hashRetryDelay)
		case protocol.VbootHashStatusNone:
			if started {
				time.Sleep(hashRetryDelay)
				continue
			}
			start := protocol.VbootHashParams{
				Cmd:      protocol.VbootHashStart,
				HashType: protocol.VbootHashTypeSHA256,
				Offset:   offset,
				Size:     size,
			}
			if _, err := d.command(protocol.CmdVbootHash, 0, start.Marshal(), 0); err != nil {
				return nil, err
			}
			started = true
		default:
			return nil, fmt.Errorf("unexpected hash status %d", r.Status)
		}
	}
	return nil, ErrHashTimeout
}

// EfsVerify asks the controller to verify a flash region's signature.
func (d *Device) EfsVerify(region protocol.FlashRegion) error {
	p := protocol.EfsVerifyParams{Region: region}
	_, err := d.command(protocol.CmdEfsVerify, 0, p.Marshal(), 0)
	if err != nil && protocol.IsResult(err, protocol.ResInvalidCommand) {
		return fmt.Errorf("efs verify: %w", ErrNotSupported)
	}
	return err
}
