package api

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ZettaScaleLabs/zplugin-ros2/config"
	"github.com/ZettaScaleLabs/zplugin-ros2/ros2"
	"github.com/ZettaScaleLabs/zplugin-ros2/route"
)

type getConfigRequest struct {
	// output format, one of yaml|json, default is json.
	Format string `form:"format" json:"format"`
}

func getConfig(ctx *gin.Context) {
	var req getConfigRequest
	ctx.ShouldBindQuery(&req)

	switch req.Format {
	case "yaml":
	default:
		req.Format = "json"
	}

	buf := &bytes.Buffer{}
	if err := config.Global().Write(buf, req.Format); err != nil {
		writeError(ctx, &Error{
			statusCode: http.StatusInternalServerError,
			Code:       ErrCodeFailed,
			Msg:        err.Error(),
		})
		return
	}

	contentType := "application/json"
	if req.Format == "yaml" {
		contentType = "text/x-yaml"
	}
	ctx.Data(http.StatusOK, contentType, buf.Bytes())
}

func getRoutes(routes RouteProvider) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var infos []route.Info
		if routes != nil {
			infos = routes.Snapshot()
		}
		ctx.JSON(http.StatusOK, Response{Data: infos})
	}
}

func getRoutesByKind(routes RouteProvider) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		kind := ctx.Param("kind")
		if _, ok := ros2.ParseKind(kind); !ok {
			writeError(ctx, ErrNotFound)
			return
		}
		var infos []route.Info
		if routes != nil {
			for _, info := range routes.Snapshot() {
				if info.Kind == kind {
					infos = append(infos, info)
				}
			}
		}
		ctx.JSON(http.StatusOK, Response{Data: infos})
	}
}

func getPeers(routes RouteProvider) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if routes == nil {
			ctx.JSON(http.StatusOK, Response{})
			return
		}
		ctx.JSON(http.StatusOK, Response{Data: routes.RemoteRoutes()})
	}
}
