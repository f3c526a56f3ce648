// Package docs swagger 文档，由 gin-swagger 在 /swagger/index.html 展示
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/healthz": {
            "get": {
                "produces": ["application/json"],
                "tags": ["system"],
                "summary": "健康检查",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/schemas": {
            "get": {
                "produces": ["application/json"],
                "tags": ["schema"],
                "summary": "列出所有资源",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/schemas/{resource}/{scene}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["schema"],
                "summary": "导出资源在某个场景的 JSON Schema",
                "parameters": [
                    {"type": "string", "description": "资源名", "name": "resource", "in": "path", "required": true},
                    {"type": "string", "description": "list/get/create/update/delete", "name": "scene", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "资源或场景不存在"}
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "katydid-crud",
	Description:      "声明式请求校验服务：各资源的 CRUD 接口返回校验与规范化后的请求。",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
