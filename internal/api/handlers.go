package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo"

	"github.com/vim-labs/burni-tokens/internal/asset"
)

func (s *Server) getInfo(c echo.Context) error {
	return c.JSON(http.StatusOK, s.engine.Info())
}

func (s *Server) getSupply(c echo.Context) error {
	return c.JSON(http.StatusOK, SupplyResponse{Supply: s.engine.TotalSupply().String()})
}

func (s *Server) getBalance(c echo.Context) error {
	addr, err := asset.ParseAddress(c.Param("address"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, BalanceResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, BalanceResponse{
		Address: addr.String(),
		Balance: s.engine.BalanceOf(addr).String(),
	})
}

func (s *Server) postTransfer(c echo.Context) error {
	from, err := caller(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, TransferResponse{Error: err.Error()})
	}

	var req TransferRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, TransferResponse{Error: err.Error()})
	}
	to, err := asset.ParseAddress(req.To)
	if err != nil {
		return c.JSON(http.StatusBadRequest, TransferResponse{Error: err.Error()})
	}
	amount, err := asset.ParseAmount(req.Amount)
	if err != nil {
		return c.JSON(http.StatusBadRequest, TransferResponse{Error: err.Error()})
	}

	result, err := s.engine.Transfer(from, to, amount, idempotencyKey(c))
	if err != nil {
		return c.JSON(statusFor(err), TransferResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, TransferResponse{
		Sequence:     result.Sequence,
		MintedAssets: result.MintedAssets,
	})
}

func (s *Server) getAsset(c echo.Context) error {
	id, err := assetID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, AssetResponse{Error: err.Error()})
	}

	owner, err := s.engine.OwnerOf(id)
	if err != nil {
		return c.JSON(statusFor(err), AssetResponse{Error: err.Error()})
	}
	approved, _ := s.engine.ApprovedFor(id)
	multihash, _ := s.engine.Multihash(id)
	uri, _ := s.engine.TokenURI(id)

	resp := AssetResponse{
		AssetID:   id,
		Owner:     owner.String(),
		Multihash: multihash,
		URI:       uri,
	}
	if !approved.IsZero() {
		resp.Approved = approved.String()
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) getAssetURI(c echo.Context) error {
	id, err := assetID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, AssetURIResponse{Error: err.Error()})
	}
	uri, err := s.engine.TokenURI(id)
	if err != nil {
		return c.JSON(statusFor(err), AssetURIResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, AssetURIResponse{AssetID: id, URI: uri})
}

func (s *Server) getAssetByIndex(c echo.Context) error {
	i, err := strconv.Atoi(c.Param("i"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, AssetIndexResponse{Error: err.Error()})
	}
	id, err := s.engine.TokenByIndex(i)
	if err != nil {
		return c.JSON(statusFor(err), AssetIndexResponse{Index: i, Error: err.Error()})
	}
	return c.JSON(http.StatusOK, AssetIndexResponse{Index: i, AssetID: id})
}

func (s *Server) postApprove(c echo.Context) error {
	from, err := caller(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}
	id, err := assetID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}

	var req ApproveRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}
	spender, err := asset.ParseAddress(req.Spender)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}

	if err := s.engine.Approve(from, spender, id, idempotencyKey(c)); err != nil {
		return c.JSON(statusFor(err), ErrorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, SequenceResponse{Sequence: s.engine.Sequence()})
}

func (s *Server) postClearApproval(c echo.Context) error {
	from, err := caller(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}
	id, err := assetID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}

	var req ClearApprovalRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}
	owner, err := asset.ParseAddress(req.Owner)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}

	if err := s.engine.ClearApproval(from, owner, id, idempotencyKey(c)); err != nil {
		return c.JSON(statusFor(err), ErrorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, SequenceResponse{Sequence: s.engine.Sequence()})
}

func (s *Server) postAssetTransfer(c echo.Context) error {
	from, err := caller(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}
	id, err := assetID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}

	var req AssetTransferRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}
	owner, err := asset.ParseAddress(req.From)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}
	to, err := asset.ParseAddress(req.To)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}

	if err := s.engine.TransferAsset(from, owner, to, id, idempotencyKey(c)); err != nil {
		return c.JSON(statusFor(err), ErrorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, SequenceResponse{Sequence: s.engine.Sequence()})
}

func (s *Server) postMultihash(c echo.Context) error {
	from, err := caller(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}
	id, err := assetID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}

	var req MultihashRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}

	if err := s.engine.SetImmutableMultihash(from, req.Multihash, id, idempotencyKey(c)); err != nil {
		return c.JSON(statusFor(err), ErrorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, SequenceResponse{Sequence: s.engine.Sequence()})
}

func (s *Server) getOwnedAssetByIndex(c echo.Context) error {
	owner, err := asset.ParseAddress(c.Param("address"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, AssetIndexResponse{Error: err.Error()})
	}
	i, err := strconv.Atoi(c.Param("i"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, AssetIndexResponse{Error: err.Error()})
	}
	id, err := s.engine.TokenOfOwnerByIndex(owner, i)
	if err != nil {
		return c.JSON(statusFor(err), AssetIndexResponse{Index: i, Error: err.Error()})
	}
	return c.JSON(http.StatusOK, AssetIndexResponse{Index: i, AssetID: id})
}

func (s *Server) getAssetCount(c echo.Context) error {
	owner, err := asset.ParseAddress(c.Param("address"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, AssetCountResponse{
		Address: owner.String(),
		Count:   s.engine.AssetBalanceOf(owner),
	})
}

func (s *Server) postPaymentAddress(c echo.Context) error {
	from, err := caller(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}

	var req PaymentAddressRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}
	next, err := asset.ParseAddress(req.Address)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}

	if err := s.engine.UpdatePaymentAddress(from, next, idempotencyKey(c)); err != nil {
		return c.JSON(statusFor(err), ErrorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, SequenceResponse{Sequence: s.engine.Sequence()})
}

func (s *Server) postBaseURI(c echo.Context) error {
	from, err := caller(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}

	var req BaseURIRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}

	if err := s.engine.UpdateBaseTokenURI(from, req.BaseURI, idempotencyKey(c)); err != nil {
		return c.JSON(statusFor(err), ErrorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, SequenceResponse{Sequence: s.engine.Sequence()})
}

func (s *Server) getInterface(c echo.Context) error {
	raw := c.Param("id")
	id, err := asset.ParseInterfaceID(raw)
	if err != nil {
		return c.JSON(http.StatusBadRequest, InterfaceResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, InterfaceResponse{
		InterfaceID: id.String(),
		Supported:   s.engine.SupportsInterface(id),
	})
}

func (s *Server) getHistory(c echo.Context) error {
	if s.queries == nil {
		return c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error: "history unavailable: service is running without a database",
		})
	}

	addr, err := asset.ParseAddress(c.Param("address"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		}
	}

	hist, err := s.queries.GetMovementHistory(c.Request().Context(), addr, limit)
	if err != nil {
		s.log.Error().Err(err).Msg("movement history query failed")
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "query failed"})
	}
	return c.JSON(http.StatusOK, hist)
}

func assetID(c echo.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("id"), 10, 64)
}
