// =============================================================================
// 📦 测试数据工厂 - OpenAPI 文档
// =============================================================================
// 提供预定义的 OpenAPI 3.x 文档，覆盖常见编译与调用场景
// =============================================================================
package fixtures

// =============================================================================
// 🎯 基础文档
// =============================================================================

// PetStoreJSON 是带组件引用、路径级参数与错误响应的 JSON 文档。
// Pet 的属性按 name、id、tag 声明，用于验证声明顺序。
const PetStoreJSON = `{
  "openapi": "3.0.3",
  "info": {"title": "Petstore", "version": "1.0.0"},
  "servers": [{"url": "https://{host}/v1/", "variables": {"host": {"default": "api.example.com"}}}],
  "paths": {
    "/pets": {
      "get": {
        "operationId": "listPets",
        "summary": "List pets",
        "tags": ["pets"],
        "parameters": [
          {"name": "limit", "in": "query", "schema": {"type": "integer", "minimum": 1, "maximum": 100}},
          {"name": "tags", "in": "query", "schema": {"type": "array", "items": {"type": "string"}}},
          {"name": "X-Request-Source", "in": "header", "schema": {"type": "string"}},
          {"name": "Accept", "in": "header", "schema": {"type": "string"}},
          {"name": "session", "in": "cookie", "schema": {"type": "string"}}
        ],
        "responses": {
          "200": {
            "description": "A list of pets",
            "content": {"application/json": {"schema": {"type": "array", "items": {"$ref": "#/components/schemas/Pet"}}}}
          },
          "400": {"description": "Bad request"},
          "500": {"description": "Server error"}
        }
      },
      "post": {
        "operationId": "createPet",
        "tags": ["pets", "admin"],
        "requestBody": {
          "required": true,
          "content": {"application/json": {"schema": {"$ref": "#/components/schemas/NewPet"}}}
        },
        "responses": {
          "201": {"description": "Created", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/Pet"}}}}
        }
      }
    },
    "/pets/{petId}": {
      "parameters": [
        {"name": "petId", "in": "path", "required": true, "description": "Pet identifier", "schema": {"type": "string"}}
      ],
      "get": {
        "operationId": "getPet",
        "description": "Get a pet by id",
        "tags": ["pets"],
        "responses": {
          "200": {"description": "A pet", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/Pet"}}}},
          "404": {"description": "Pet not found"}
        }
      },
      "delete": {
        "tags": ["admin"],
        "responses": {"204": {"description": "Deleted"}}
      }
    }
  },
  "components": {
    "schemas": {
      "Pet": {
        "type": "object",
        "required": ["id", "name"],
        "properties": {
          "name": {"type": "string"},
          "id": {"type": "integer", "format": "int64"},
          "tag": {"type": "string"}
        }
      },
      "NewPet": {
        "type": "object",
        "required": ["name"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "tag": {"type": "string"}
        }
      }
    }
  }
}`

// PagesYAML 是 YAML 文档：按 id 获取页面与带分页上限的搜索。
const PagesYAML = `openapi: 3.1.0
info:
  title: Pages API
  version: "2022-06-28"
servers:
  - url: https://pages.example.com/v1
paths:
  /pages/{page_id}:
    get:
      operationId: retrievePage
      summary: Retrieve a page
      parameters:
        - name: page_id
          in: path
          required: true
          schema:
            type: string
        - name: filter_properties
          in: query
          schema:
            type: array
            items:
              type: string
      responses:
        "200":
          description: The page
          content:
            application/json:
              schema:
                $ref: '#/components/schemas/Page'
        "404":
          description: Page not found
  /search:
    post:
      operationId: search
      summary: Search pages
      requestBody:
        content:
          application/json:
            schema:
              type: object
              properties:
                query:
                  type: string
                page_size:
                  type: integer
                  minimum: 1
                  maximum: 100
                start_cursor:
                  type: string
      responses:
        "200":
          description: Search results
          content:
            application/json:
              schema:
                type: object
                properties:
                  results:
                    type: array
                    items:
                      $ref: '#/components/schemas/Page'
                  has_more:
                    type: boolean
        "400":
          description: Invalid request
components:
  schemas:
    Page:
      type: object
      required: [id]
      properties:
        id:
          type: string
        title:
          type: string
        archived:
          type: boolean
`

// =============================================================================
// 🔁 递归与边界文档
// =============================================================================

// RecursiveJSON 含自引用 (TreeNode) 与互相引用 (Person / Company) 的组件。
const RecursiveJSON = `{
  "openapi": "3.0.3",
  "info": {"title": "Recursive", "version": "1.0.0"},
  "paths": {
    "/trees": {
      "post": {
        "operationId": "createTree",
        "requestBody": {
          "required": true,
          "content": {"application/json": {"schema": {"$ref": "#/components/schemas/TreeNode"}}}
        },
        "responses": {"200": {"description": "ok"}}
      }
    },
    "/people/{id}": {
      "get": {
        "operationId": "getPerson",
        "parameters": [{"name": "id", "in": "path", "required": true, "schema": {"type": "string"}}],
        "responses": {
          "200": {"description": "ok", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/Person"}}}}
        }
      }
    }
  },
  "components": {
    "schemas": {
      "TreeNode": {
        "type": "object",
        "properties": {
          "value": {"type": "string"},
          "children": {"type": "array", "items": {"$ref": "#/components/schemas/TreeNode"}}
        }
      },
      "Person": {
        "type": "object",
        "properties": {
          "name": {"type": "string"},
          "employer": {"$ref": "#/components/schemas/Company"}
        }
      },
      "Company": {
        "type": "object",
        "properties": {
          "name": {"type": "string"},
          "ceo": {"$ref": "#/components/schemas/Person"}
        }
      },
      "Employee": {"$ref": "#/components/schemas/Person"}
    }
  }
}`

// MissingRefJSON 引用了不存在的组件。
const MissingRefJSON = `{
  "openapi": "3.0.3",
  "info": {"title": "Broken", "version": "1.0.0"},
  "paths": {
    "/things": {
      "post": {
        "operationId": "createThing",
        "requestBody": {"content": {"application/json": {"schema": {"$ref": "#/components/schemas/Missing"}}}},
        "responses": {"200": {"description": "ok"}}
      }
    }
  },
  "components": {"schemas": {"Thing": {"type": "object"}}}
}`

// =============================================================================
// 📎 上传与冲突文档
// =============================================================================

// UploadJSON 覆盖 multipart 文件、multipart 无文件、原始二进制与表单请求体。
const UploadJSON = `{
  "openapi": "3.0.3",
  "info": {"title": "Files", "version": "1.0.0"},
  "servers": [{"url": "https://files.example.com"}],
  "paths": {
    "/files": {
      "post": {
        "operationId": "uploadFile",
        "summary": "Upload a file",
        "requestBody": {
          "required": true,
          "content": {
            "application/json": {"schema": {"type": "object", "properties": {"url": {"type": "string"}}}},
            "multipart/form-data": {
              "schema": {
                "type": "object",
                "required": ["file"],
                "properties": {
                  "file": {"type": "string", "format": "binary", "description": "The file"},
                  "purpose": {"type": "string", "enum": ["assistants", "batch"]},
                  "attachments": {"type": "array", "items": {"type": "string", "format": "binary"}}
                }
              }
            }
          }
        },
        "responses": {"200": {"description": "ok"}, "413": {"description": "Payload too large"}}
      }
    },
    "/notes": {
      "post": {
        "operationId": "createNote",
        "requestBody": {
          "content": {
            "multipart/form-data": {
              "schema": {"type": "object", "properties": {"title": {"type": "string"}, "text": {"type": "string"}}}
            }
          }
        },
        "responses": {"200": {"description": "ok"}}
      }
    },
    "/blobs/{name}": {
      "put": {
        "operationId": "putBlob",
        "parameters": [{"name": "name", "in": "path", "required": true, "schema": {"type": "string"}}],
        "requestBody": {
          "required": true,
          "content": {"application/octet-stream": {"schema": {"type": "string", "format": "binary"}}}
        },
        "responses": {"201": {"description": "stored"}}
      }
    },
    "/login": {
      "post": {
        "operationId": "login",
        "requestBody": {
          "content": {
            "application/x-www-form-urlencoded": {
              "schema": {"type": "object", "required": ["user"], "properties": {"user": {"type": "string"}, "remember": {"type": "boolean"}}}
            }
          }
        },
        "responses": {"200": {"description": "ok"}}
      }
    }
  }
}`

// CompositionJSON 覆盖 allOf、oneOf、anyOf 组合请求体，以及 allOf 中指回祖先的引用。
// 错误响应使用 4XX、5XX 范围键。
const CompositionJSON = `{
  "openapi": "3.0.3",
  "info": {"title": "Composition", "version": "1.0.0"},
  "servers": [{"url": "https://mix.example.com"}],
  "components": {
    "schemas": {
      "Cat": {"type": "object", "required": ["meow"], "properties": {"meow": {"type": "boolean"}}},
      "Dog": {"type": "object", "required": ["bark"], "properties": {"bark": {"type": "boolean"}}},
      "Category": {
        "type": "object",
        "required": ["name"],
        "properties": {
          "name": {"type": "string"},
          "parent": {"allOf": [{"$ref": "#/components/schemas/Category"}], "description": "Parent category"}
        }
      }
    }
  },
  "paths": {
    "/mix": {
      "post": {
        "operationId": "mixBody",
        "requestBody": {
          "required": true,
          "content": {
            "application/json": {
              "schema": {
                "type": "object",
                "properties": {"a": {"type": "string"}},
                "allOf": [{"required": ["b"], "properties": {"b": {"type": "integer"}}}]
              }
            }
          }
        },
        "responses": {
          "200": {"description": "ok"},
          "4XX": {"description": "Client error"},
          "5XX": {"description": "Server error"},
          "default": {"description": "Unexpected"}
        }
      }
    },
    "/pets": {
      "post": {
        "operationId": "addPet",
        "requestBody": {
          "required": true,
          "content": {
            "application/json": {
              "schema": {
                "type": "object",
                "properties": {"name": {"type": "string"}},
                "oneOf": [{"$ref": "#/components/schemas/Cat"}, {"$ref": "#/components/schemas/Dog"}]
              }
            }
          }
        },
        "responses": {"201": {"description": "created"}}
      }
    },
    "/contacts": {
      "post": {
        "operationId": "addContact",
        "requestBody": {
          "required": true,
          "content": {
            "application/json": {
              "schema": {
                "type": "object",
                "properties": {"email": {"type": "string"}, "phone": {"type": "string"}},
                "anyOf": [{"required": ["email"]}, {"required": ["phone"]}]
              }
            }
          }
        },
        "responses": {"201": {"description": "created"}}
      }
    },
    "/categories": {
      "post": {
        "operationId": "createCategory",
        "requestBody": {
          "required": true,
          "content": {"application/json": {"schema": {"$ref": "#/components/schemas/Category"}}}
        },
        "responses": {"201": {"description": "created"}}
      }
    },
    "/documents": {
      "post": {
        "operationId": "uploadDocument",
        "requestBody": {
          "required": true,
          "content": {
            "multipart/form-data": {
              "schema": {
                "type": "object",
                "properties": {
                  "file": {"type": "string", "format": "binary", "description": "Document"},
                  "note": {"type": "string"}
                },
                "allOf": [{"required": ["file"]}]
              }
            }
          }
        },
        "responses": {"201": {"description": "stored"}}
      }
    }
  }
}`

// CollisionJSON 中同名参数出现在 path、query 与 body 中，另有未声明的路径变量。
const CollisionJSON = `{
  "openapi": "3.0.3",
  "info": {"title": "Collisions", "version": "1.0.0"},
  "paths": {
    "/items/{id}": {
      "put": {
        "operationId": "updateItem",
        "parameters": [
          {"name": "id", "in": "path", "required": true, "schema": {"type": "string"}},
          {"name": "id", "in": "query", "schema": {"type": "integer"}},
          {"name": "version", "in": "query", "schema": {"type": "integer"}}
        ],
        "requestBody": {
          "required": true,
          "content": {
            "application/json": {
              "schema": {
                "type": "object",
                "required": ["name"],
                "properties": {
                  "version": {"type": "string"},
                  "name": {"type": "string"}
                }
              }
            }
          }
        },
        "responses": {"200": {"description": "ok"}}
      }
    }
  }
}`

// DuplicateNameJSON 两个操作声明了相同的 operationId。
const DuplicateNameJSON = `{
  "openapi": "3.0.3",
  "info": {"title": "Dupes", "version": "1.0.0"},
  "paths": {
    "/a": {"get": {"operationId": "fetch", "responses": {"200": {"description": "ok"}}}},
    "/b": {"get": {"operationId": "fetch", "responses": {"200": {"description": "ok"}}}}
  }
}`

// Swagger2JSON 是不受支持的 Swagger 2.0 文档。
const Swagger2JSON = `{"swagger": "2.0", "info": {"title": "Old", "version": "1"}, "paths": {}}`
