package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"etomic.dev/swap/swap"
)

// Request is one stateless operation read from stdin.
type Request struct {
	Op string `json:"op"`

	InstructionHex string           `json:"instruction_hex,omitempty"`
	Tag            *uint8           `json:"tag,omitempty"`
	Instruction    *InstructionJSON `json:"instruction,omitempty"`
	RecordHex      string           `json:"record_hex,omitempty"`

	Secret     string `json:"secret,omitempty"`
	SecretHash string `json:"secret_hash,omitempty"`
	Receiver   string `json:"receiver,omitempty"`
	Sender     string `json:"sender,omitempty"`
	AssetClass string `json:"asset_class,omitempty"`
	Amount     uint64 `json:"amount,omitempty"`

	ProgramID string `json:"program_id,omitempty"`
	Role      string `json:"role,omitempty"`
	LockTime  uint64 `json:"lock_time,omitempty"`
	Vault     string `json:"vault,omitempty"`
	Bump      uint8  `json:"bump,omitempty"`
}

type Response struct {
	Ok          bool             `json:"ok"`
	Err         string           `json:"err,omitempty"`
	Code        uint32           `json:"code,omitempty"`
	Instruction *InstructionJSON `json:"instruction,omitempty"`
	Hex         string           `json:"hex,omitempty"`
	Digest      string           `json:"digest,omitempty"`
	Vault       string           `json:"vault,omitempty"`
	Bump        *uint8           `json:"bump,omitempty"`
	Valid       *bool            `json:"valid,omitempty"`
	Record      *RecordJSON      `json:"record,omitempty"`
}

// InstructionJSON is the text form of every instruction variant. Fields a
// variant does not carry are left empty.
type InstructionJSON struct {
	Op            string `json:"op"`
	SecretHash    string `json:"secret_hash,omitempty"`
	Secret        string `json:"secret,omitempty"`
	LockTime      uint64 `json:"lock_time"`
	Amount        uint64 `json:"amount"`
	Receiver      string `json:"receiver,omitempty"`
	Sender        string `json:"sender,omitempty"`
	AssetClass    string `json:"asset_class,omitempty"`
	FundingAmount uint64 `json:"funding_amount,omitempty"`
	VaultBump     uint8  `json:"vault_bump"`
	VaultDataBump uint8  `json:"vault_data_bump"`
}

type RecordJSON struct {
	Commitment string `json:"commitment"`
	LockTime   uint64 `json:"lock_time"`
	State      string `json:"state"`
}

func writeResp(w io.Writer, resp Response) {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(resp)
}

func writeErr(w io.Writer, err error) {
	if code, ok := swap.CodeOf(err); ok {
		writeResp(w, Response{Ok: false, Err: code.String(), Code: uint32(code)})
		return
	}
	writeResp(w, Response{Ok: false, Err: err.Error()})
}

func run(in io.Reader, out io.Writer) {
	var req Request
	if err := json.NewDecoder(in).Decode(&req); err != nil {
		writeResp(out, Response{Ok: false, Err: fmt.Sprintf("bad request: %v", err)})
		return
	}
	resp, err := handle(req)
	if err != nil {
		writeErr(out, err)
		return
	}
	resp.Ok = true
	writeResp(out, resp)
}

func handle(req Request) (Response, error) {
	switch req.Op {
	case "parse_instruction":
		raw, err := hex.DecodeString(req.InstructionHex)
		if err != nil {
			return Response{}, fmt.Errorf("bad instruction_hex")
		}
		var ix swap.Instruction
		if req.Tag != nil {
			ix, err = swap.DecodeInstruction(*req.Tag, raw)
		} else {
			ix, err = swap.ParseInstruction(raw)
		}
		if err != nil {
			return Response{}, err
		}
		return Response{Instruction: instructionToJSON(ix)}, nil

	case "encode_instruction":
		if req.Instruction == nil {
			return Response{}, fmt.Errorf("instruction required")
		}
		ix, err := instructionFromJSON(*req.Instruction)
		if err != nil {
			return Response{}, err
		}
		return Response{Hex: hex.EncodeToString(ix.Encode())}, nil

	case "secret_hash":
		secret, err := parseHex32(req.Secret, "secret")
		if err != nil {
			return Response{}, err
		}
		h := swap.SecretHash(secret)
		return Response{Digest: hex.EncodeToString(h[:])}, nil

	case "commitment":
		receiver, err := parseIdentity(req.Receiver, "receiver")
		if err != nil {
			return Response{}, err
		}
		sender, err := parseIdentity(req.Sender, "sender")
		if err != nil {
			return Response{}, err
		}
		sh, err := parseHex32(req.SecretHash, "secret_hash")
		if err != nil {
			return Response{}, err
		}
		asset, err := parseOptionalIdentity(req.AssetClass, "asset_class")
		if err != nil {
			return Response{}, err
		}
		c := swap.Commit(receiver, sender, sh, asset, req.Amount)
		return Response{Digest: hex.EncodeToString(c[:])}, nil

	case "find_vault":
		pid, role, sh, err := vaultInputs(req)
		if err != nil {
			return Response{}, err
		}
		addr, bump, ok := swap.FindVaultAddress(pid, role, req.LockTime, sh)
		if !ok {
			return Response{}, fmt.Errorf("no usable bump")
		}
		return Response{Vault: addr.String(), Bump: &bump}, nil

	case "verify_vault":
		pid, role, sh, err := vaultInputs(req)
		if err != nil {
			return Response{}, err
		}
		vault, err := parseIdentity(req.Vault, "vault")
		if err != nil {
			return Response{}, err
		}
		valid := swap.VerifyVault(vault, pid, role, req.LockTime, sh, req.Bump)
		return Response{Valid: &valid}, nil

	case "parse_record":
		raw, err := hex.DecodeString(req.RecordHex)
		if err != nil {
			return Response{}, fmt.Errorf("bad record_hex")
		}
		r, err := swap.ParsePaymentRecord(raw)
		if err != nil {
			return Response{}, err
		}
		return Response{Record: &RecordJSON{
			Commitment: hex.EncodeToString(r.Commitment[:]),
			LockTime:   r.LockTime,
			State:      r.State.String(),
		}}, nil

	default:
		return Response{}, fmt.Errorf("unknown op: %q", req.Op)
	}
}

func vaultInputs(req Request) (swap.Identity, string, [32]byte, error) {
	pid, err := parseIdentity(req.ProgramID, "program_id")
	if err != nil {
		return pid, "", [32]byte{}, err
	}
	var role string
	switch strings.ToLower(req.Role) {
	case "funds", swap.RoleFunds:
		role = swap.RoleFunds
	case "data", swap.RoleData:
		role = swap.RoleData
	default:
		return pid, "", [32]byte{}, fmt.Errorf("bad role %q (want funds|data)", req.Role)
	}
	sh, err := parseHex32(req.SecretHash, "secret_hash")
	return pid, role, sh, err
}

func instructionToJSON(ix swap.Instruction) *InstructionJSON {
	out := &InstructionJSON{Op: swap.TagName(ix.Tag())}
	switch v := ix.(type) {
	case *swap.Payment:
		out.SecretHash = hex.EncodeToString(v.SecretHash[:])
		out.LockTime, out.Amount = v.LockTime, v.Amount
		out.Receiver = v.Receiver.String()
		out.FundingAmount = v.FundingAmount
		out.VaultBump, out.VaultDataBump = v.VaultBump, v.VaultDataBump
	case *swap.TokenPayment:
		out.SecretHash = hex.EncodeToString(v.SecretHash[:])
		out.LockTime, out.Amount = v.LockTime, v.Amount
		out.Receiver = v.Receiver.String()
		out.AssetClass = v.AssetClass.String()
		out.FundingAmount = v.FundingAmount
		out.VaultBump, out.VaultDataBump = v.VaultBump, v.VaultDataBump
	case *swap.ReceiverSpend:
		out.Secret = hex.EncodeToString(v.Secret[:])
		out.LockTime, out.Amount = v.LockTime, v.Amount
		out.Sender = v.Sender.String()
		out.AssetClass = v.AssetClass.String()
		out.VaultBump, out.VaultDataBump = v.VaultBump, v.VaultDataBump
	case *swap.SenderRefund:
		out.SecretHash = hex.EncodeToString(v.SecretHash[:])
		out.LockTime, out.Amount = v.LockTime, v.Amount
		out.Receiver = v.Receiver.String()
		out.AssetClass = v.AssetClass.String()
		out.VaultBump, out.VaultDataBump = v.VaultBump, v.VaultDataBump
	}
	return out
}

func instructionFromJSON(j InstructionJSON) (swap.Instruction, error) {
	switch j.Op {
	case "Payment":
		sh, err := parseHex32(j.SecretHash, "secret_hash")
		if err != nil {
			return nil, err
		}
		receiver, err := parseIdentity(j.Receiver, "receiver")
		if err != nil {
			return nil, err
		}
		return &swap.Payment{
			SecretHash: sh, LockTime: j.LockTime, Amount: j.Amount, Receiver: receiver,
			FundingAmount: j.FundingAmount, VaultBump: j.VaultBump, VaultDataBump: j.VaultDataBump,
		}, nil
	case "TokenPayment":
		sh, err := parseHex32(j.SecretHash, "secret_hash")
		if err != nil {
			return nil, err
		}
		receiver, err := parseIdentity(j.Receiver, "receiver")
		if err != nil {
			return nil, err
		}
		asset, err := parseIdentity(j.AssetClass, "asset_class")
		if err != nil {
			return nil, err
		}
		return &swap.TokenPayment{
			SecretHash: sh, LockTime: j.LockTime, Amount: j.Amount, Receiver: receiver, AssetClass: asset,
			FundingAmount: j.FundingAmount, VaultBump: j.VaultBump, VaultDataBump: j.VaultDataBump,
		}, nil
	case "ReceiverSpend":
		secret, err := parseHex32(j.Secret, "secret")
		if err != nil {
			return nil, err
		}
		sender, err := parseIdentity(j.Sender, "sender")
		if err != nil {
			return nil, err
		}
		asset, err := parseOptionalIdentity(j.AssetClass, "asset_class")
		if err != nil {
			return nil, err
		}
		return &swap.ReceiverSpend{
			Secret: secret, LockTime: j.LockTime, Amount: j.Amount, Sender: sender, AssetClass: asset,
			VaultBump: j.VaultBump, VaultDataBump: j.VaultDataBump,
		}, nil
	case "SenderRefund":
		sh, err := parseHex32(j.SecretHash, "secret_hash")
		if err != nil {
			return nil, err
		}
		receiver, err := parseIdentity(j.Receiver, "receiver")
		if err != nil {
			return nil, err
		}
		asset, err := parseOptionalIdentity(j.AssetClass, "asset_class")
		if err != nil {
			return nil, err
		}
		return &swap.SenderRefund{
			SecretHash: sh, LockTime: j.LockTime, Amount: j.Amount, Receiver: receiver, AssetClass: asset,
			VaultBump: j.VaultBump, VaultDataBump: j.VaultDataBump,
		}, nil
	default:
		return nil, fmt.Errorf("unknown instruction op: %q", j.Op)
	}
}

func parseHex32(s, name string) ([32]byte, error) {
	var out [32]byte
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 32 {
		return out, fmt.Errorf("bad %s", name)
	}
	copy(out[:], b)
	return out, nil
}

func parseIdentity(s, name string) (swap.Identity, error) {
	id, err := swap.ParseIdentity(s)
	if err != nil {
		return id, fmt.Errorf("bad %s: %w", name, err)
	}
	return id, nil
}

func parseOptionalIdentity(s, name string) (swap.Identity, error) {
	if s == "" {
		return swap.Identity{}, nil
	}
	return parseIdentity(s, name)
}
